package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tryonstudio/models"
)

const openAIEndpoint = "https://api.openai.com/v1"

const (
	openAIImageModel = "gpt-image-1"
	openAITextModel  = "gpt-4.1-nano"
)

// billing reads need a separate scope, these markers identify the denial
var billingDeniedMarkers = []string{"insufficient permissions", "api.usage.read"}

// OpenAIProvider talks to the OpenAI REST API. It implements both
// GenerationProvider and BillingFetcher.
type OpenAIProvider struct {
	BaseURL    string
	HTTPClient *http.Client
	ImageModel string
	TextModel  string
}

func NewOpenAIProvider(baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIEndpoint
	}
	return &OpenAIProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Minute},
		ImageModel: openAIImageModel,
		TextModel:  openAITextModel,
	}
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

type openAIImageUsage struct {
	InputTokens        int64 `json:"input_tokens"`
	OutputTokens       int64 `json:"output_tokens"`
	InputTokensDetails struct {
		TextTokens  int64 `json:"text_tokens"`
		ImageTokens int64 `json:"image_tokens"`
	} `json:"input_tokens_details"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Usage *openAIImageUsage `json:"usage"`
}

type openAIContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type openAIInputMessage struct {
	Role    string          `json:"role"`
	Content []openAIContent `json:"content"`
}

type openAIFormat struct {
	Type   string                 `json:"type"`
	Name   string                 `json:"name"`
	Schema map[string]interface{} `json:"schema"`
	Strict bool                   `json:"strict"`
}

type openAIResponsesRequest struct {
	Model           string               `json:"model"`
	Input           []openAIInputMessage `json:"input"`
	Text            map[string]any       `json:"text"`
	Temperature     float64              `json:"temperature"`
	MaxOutputTokens int                  `json:"max_output_tokens,omitempty"`
	TopP            float64              `json:"top_p,omitempty"`
	Store           bool                 `json:"store"`
}

type openAIResponsesResponse struct {
	Output []struct {
		Type    string          `json:"type"`
		Content []openAIContent `json:"content"`
	} `json:"output"`
	Usage *struct {
		InputTokens        int64 `json:"input_tokens"`
		OutputTokens       int64 `json:"output_tokens"`
		InputTokensDetails struct {
			CachedTokens int64 `json:"cached_tokens"`
		} `json:"input_tokens_details"`
	} `json:"usage"`
}

type openAICostsResponse struct {
	Data []struct {
		Results []struct {
			Amount struct {
				Value    float64 `json:"value"`
				Currency string  `json:"currency"`
			} `json:"amount"`
		} `json:"results"`
	} `json:"data"`
}

// send performs the request and returns the body of a 2xx response. Other
// statuses become a GenerationError carrying the provider's message.
func (p *OpenAIProvider) send(ctx context.Context, operation, credential, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: "failed to read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBytes, &models.GenerationError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    openAIErrorMessage(respBytes),
		}
	}
	return respBytes, nil
}

func openAIErrorMessage(body []byte) string {
	var parsed openAIErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 300 {
		text = text[:300]
	}
	if text == "" {
		return "empty error response"
	}
	return text
}

func (p *OpenAIProvider) ListModels(ctx context.Context, credential string) (int, error) {
	body, err := p.send(ctx, "list models", credential, http.MethodGet, "/models", nil, "")
	if err != nil {
		return 0, err
	}
	var parsed struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, &models.GenerationError{Operation: "list models", Message: "invalid response structure", Err: err}
	}
	return len(parsed.Data), nil
}

func (p *OpenAIProvider) EditImage(ctx context.Context, credential string, req ImageEditRequest) (*ImageEditResponse, error) {
	const operation = "image edit"
	if len(req.Images) == 0 {
		return nil, models.NewValidationError("images", "at least one image is required")
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	fields := [][2]string{
		{"model", p.ImageModel},
		{"prompt", req.Prompt},
		{"n", "1"},
		{"size", req.Size},
		{"moderation", "low"},
		{"quality", string(req.Quality)},
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", field[0], err)
		}
	}
	imageField := "image"
	if len(req.Images) > 1 {
		imageField = "image[]"
	}
	for i, img := range req.Images {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="image-%d.png"`, imageField, i))
		header.Set("Content-Type", "image/png")
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(img); err != nil {
			return nil, fmt.Errorf("failed to write image part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart form: %w", err)
	}

	body, err := p.send(ctx, operation, credential, http.MethodPost, "/images/edits", &form, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var parsed openAIImageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: "invalid response structure", Err: err}
	}

	out := &ImageEditResponse{}
	if parsed.Usage != nil {
		out.Usage = models.UsageDelta{
			TextTokens:   parsed.Usage.InputTokensDetails.TextTokens,
			ImageTokens:  parsed.Usage.InputTokensDetails.ImageTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		}
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return out, &models.GenerationError{Operation: operation, Message: "no image returned"}
	}
	image, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return out, &models.GenerationError{Operation: operation, Message: "returned image is not valid base64", Err: err}
	}
	out.Image = image
	return out, nil
}

func (p *OpenAIProvider) InferStructured(ctx context.Context, credential string, req StructuredRequest) (*StructuredResponse, error) {
	const operation = "structured inference"
	if req.Schema == nil {
		return nil, models.NewValidationError("schema", "schema is required")
	}
	user := []openAIContent{{Type: "input_text", Text: req.UserPrompt}}
	if len(req.Image) > 0 {
		user = append(user, openAIContent{
			Type:     "input_image",
			ImageURL: DataURL(EncodeImage(req.Image), "image/png"),
		})
	}
	payload := openAIResponsesRequest{
		Model: p.TextModel,
		Input: []openAIInputMessage{
			{Role: "system", Content: []openAIContent{{Type: "input_text", Text: req.SystemPrompt}}},
			{Role: "user", Content: user},
		},
		Text: map[string]any{
			"format": openAIFormat{
				Type:   "json_schema",
				Name:   req.SchemaName,
				Schema: req.Schema.JSON(),
				Strict: true,
			},
		},
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
		TopP:            req.TopP,
		Store:           false,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := p.send(ctx, operation, credential, http.MethodPost, "/responses", bytes.NewReader(raw), "application/json")
	if err != nil {
		return nil, err
	}
	var parsed openAIResponsesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: "invalid response structure", Err: err}
	}

	out := &StructuredResponse{}
	if parsed.Usage != nil {
		// input_tokens includes the cached share
		cached := parsed.Usage.InputTokensDetails.CachedTokens
		out.Usage = models.UsageDelta{
			TextTokens:   cached,
			ImageTokens:  nonNegative(parsed.Usage.InputTokens - cached),
			OutputTokens: parsed.Usage.OutputTokens,
		}
	}
	for _, item := range parsed.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && content.Text != "" {
				out.Output = json.RawMessage(content.Text)
				return out, nil
			}
		}
	}
	return out, &models.GenerationError{Operation: operation, Message: "invalid response structure"}
}

// MonthCost sums the bucketed spend reported since the given instant.
func (p *OpenAIProvider) MonthCost(ctx context.Context, credential string, since time.Time) (float64, error) {
	query := url.Values{}
	query.Set("start_time", strconv.FormatInt(since.UTC().Unix(), 10))
	query.Set("bucket_width", "1d")
	query.Set("limit", "31")

	body, err := p.send(ctx, "billing", credential, http.MethodGet, "/organization/costs?"+query.Encode(), nil, "application/json")
	if err != nil {
		text := string(body)
		for _, marker := range billingDeniedMarkers {
			if strings.Contains(text, marker) {
				return 0, &models.PermissionError{Message: openAIErrorMessage(body)}
			}
		}
		return 0, err
	}
	var parsed openAICostsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode costs response: %w", err)
	}
	total := 0.0
	for _, bucket := range parsed.Data {
		for _, result := range bucket.Results {
			total += result.Amount.Value
		}
	}
	return total, nil
}
