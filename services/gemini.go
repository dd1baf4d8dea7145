package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tryonstudio/models"

	"google.golang.org/genai"
)

// LLMModelName selects the Gemini model for a call.
type LLMModelName int32

const (
	Flash25 LLMModelName = iota
	FlashLite25
	Flash25Image
)

func (t LLMModelName) String() string {
	switch t {
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite"
	case Flash25Image:
		return "gemini-2.5-flash-image-preview"
	default:
		return "gemini-2.5-flash"
	}
}

// GeminiProvider serves the generation contract through the Gemini API.
// Gemini has no quality tiers, so ImageEditRequest.Quality is ignored, and the
// requested canvas size is passed as an instruction.
type GeminiProvider struct {
	BaseURL    string
	ImageModel LLMModelName
	TextModel  LLMModelName
}

func NewGeminiProvider(baseURL string) *GeminiProvider {
	return &GeminiProvider{
		BaseURL:    baseURL,
		ImageModel: Flash25Image,
		TextModel:  FlashLite25,
	}
}

func (p *GeminiProvider) client(ctx context.Context, credential string) (*genai.Client, error) {
	config := &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
	}
	if p.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: p.BaseURL}
	}
	return genai.NewClient(ctx, config)
}

func (p *GeminiProvider) ListModels(ctx context.Context, credential string) (int, error) {
	client, err := p.client(ctx, credential)
	if err != nil {
		return 0, &models.GenerationError{Operation: "list models", Message: "client setup failed", Err: err}
	}
	page, err := client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 5})
	if err != nil {
		return 0, &models.GenerationError{Operation: "list models", Message: err.Error(), Err: err}
	}
	return len(page.Items), nil
}

func (p *GeminiProvider) EditImage(ctx context.Context, credential string, req ImageEditRequest) (*ImageEditResponse, error) {
	const operation = "image edit"
	if len(req.Images) == 0 {
		return nil, models.NewValidationError("images", "at least one image is required")
	}
	client, err := p.client(ctx, credential)
	if err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: "client setup failed", Err: err}
	}

	var parts []*genai.Part
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: img},
		})
	}
	prompt := req.Prompt
	if req.Size != "" {
		prompt += fmt.Sprintf("\nOutput canvas: %s pixels.", req.Size)
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	result, err := client.Models.GenerateContent(ctx, p.ImageModel.String(), []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, &genai.GenerateContentConfig{
		Temperature: floatPointer(1),
	})
	if err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: err.Error(), Err: err}
	}

	out := &ImageEditResponse{Usage: geminiUsage(result.UsageMetadata)}
	if blocked := promptBlockMessage(result); blocked != "" {
		return out, &models.GenerationError{Operation: operation, Message: "content violation: " + blocked}
	}
	images, err := GetAllInlineImages(result)
	if err != nil {
		return out, &models.GenerationError{Operation: operation, Message: err.Error()}
	}
	if len(images) == 0 {
		return out, &models.GenerationError{Operation: operation, Message: "no image returned"}
	}
	out.Image = images[0]
	return out, nil
}

func (p *GeminiProvider) InferStructured(ctx context.Context, credential string, req StructuredRequest) (*StructuredResponse, error) {
	const operation = "structured inference"
	if req.Schema == nil {
		return nil, models.NewValidationError("schema", "schema is required")
	}
	client, err := p.client(ctx, credential)
	if err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: "client setup failed", Err: err}
	}

	parts := []*genai.Part{genai.NewPartFromText(req.UserPrompt)}
	if len(req.Image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: req.Image},
		})
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema.Genai(),
		CandidateCount:   1,
		Temperature:      floatPointer(float32(req.Temperature)),
		MaxOutputTokens:  int32(req.MaxOutputTokens),
		// thinking tokens would eat the small output budget
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: Int32Pointer(0)},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
	}
	if req.TopP > 0 {
		config.TopP = floatPointer(float32(req.TopP))
	}

	result, err := client.Models.GenerateContent(ctx, p.TextModel.String(), []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, config)
	if err != nil {
		return nil, &models.GenerationError{Operation: operation, Message: err.Error(), Err: err}
	}

	out := &StructuredResponse{Usage: geminiUsage(result.UsageMetadata)}
	if blocked := promptBlockMessage(result); blocked != "" {
		return out, &models.GenerationError{Operation: operation, Message: "content violation: " + blocked}
	}
	text, err := firstCandidateText(result)
	if err != nil {
		return out, &models.GenerationError{Operation: operation, Message: err.Error()}
	}
	out.Output = []byte(text)
	return out, nil
}

// MonthCost always reports a denial: the Gemini API key cannot read billing.
func (p *GeminiProvider) MonthCost(ctx context.Context, credential string, since time.Time) (float64, error) {
	return 0, &models.PermissionError{Message: "billing is not readable with a Gemini API key"}
}

// geminiUsage maps usage metadata onto the text/image/output counters.
// Thought tokens are billed as output.
func geminiUsage(meta *genai.GenerateContentResponseUsageMetadata) models.UsageDelta {
	if meta == nil {
		return models.UsageDelta{}
	}
	delta := models.UsageDelta{
		OutputTokens: int64(meta.CandidatesTokenCount) + int64(meta.ThoughtsTokenCount),
	}
	if len(meta.PromptTokensDetails) == 0 {
		delta.TextTokens = int64(meta.PromptTokenCount)
		return delta
	}
	for _, detail := range meta.PromptTokensDetails {
		if detail == nil {
			continue
		}
		switch detail.Modality {
		case genai.MediaModalityImage:
			delta.ImageTokens += int64(detail.TokenCount)
		default:
			delta.TextTokens += int64(detail.TokenCount)
		}
	}
	return delta
}

func promptBlockMessage(result *genai.GenerateContentResponse) string {
	if result == nil || result.PromptFeedback == nil || result.PromptFeedback.BlockReason == "" {
		return ""
	}
	log.Println("[Gemini] prompt blocked:", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	if result.PromptFeedback.BlockReasonMessage != "" {
		return result.PromptFeedback.BlockReasonMessage
	}
	return string(result.PromptFeedback.BlockReason)
}

func GetAllInlineImages(result *genai.GenerateContentResponse) ([][]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("empty response")
	}

	var allImageData [][]byte
	for _, cand := range result.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				continue
			}
			if len(part.InlineData.Data) > 0 {
				allImageData = append(allImageData, part.InlineData.Data)
			}
		}
	}
	return allImageData, nil
}

func firstCandidateText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	cand := result.Candidates[0]
	for _, rating := range cand.SafetyRatings {
		if rating.Blocked {
			return "", fmt.Errorf("content blocked by safety setting: %s", rating.Category)
		}
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("invalid response structure, finish reason %s", cand.FinishReason)
	}
	return text, nil
}
