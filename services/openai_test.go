package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tryonstudio/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
			return
		}
		w.Write([]byte(`{"object":"list","data":[{"id":"gpt-image-1"},{"id":"gpt-4.1-nano"}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(server.URL + "/")
	count, err := provider.ListModels(context.Background(), "sk-good")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = provider.ListModels(context.Background(), "sk-bad")
	require.Error(t, err)
	var genErr *models.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, http.StatusUnauthorized, genErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", genErr.Message)
	assert.ErrorIs(t, err, models.ErrGeneration)
}

func TestOpenAIEditImage(t *testing.T) {
	result := []byte("result-png-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/edits", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "gpt-image-1", r.FormValue("model"))
		assert.Equal(t, "1024x1536", r.FormValue("size"))
		assert.Equal(t, "medium", r.FormValue("quality"))
		assert.Equal(t, "low", r.FormValue("moderation"))
		assert.Equal(t, "dress them", r.FormValue("prompt"))
		files := r.MultipartForm.File["image[]"]
		require.Len(t, files, 3)
		f, err := files[1].Open()
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		f.Close()
		assert.Equal(t, "item-1", string(content))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"b64_json": EncodeImage(result)}},
			"usage": map[string]interface{}{
				"input_tokens":         600,
				"output_tokens":        1500,
				"input_tokens_details": map[string]int{"text_tokens": 100, "image_tokens": 500},
			},
		})
	}))
	defer server.Close()

	resp, err := NewOpenAIProvider(server.URL).EditImage(context.Background(), "sk-test", ImageEditRequest{
		Images:  [][]byte{[]byte("pose"), []byte("item-1"), []byte("item-2")},
		Prompt:  "dress them",
		Size:    CompositionSize,
		Quality: models.QualityMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, result, resp.Image)
	assert.Equal(t, models.UsageDelta{TextTokens: 100, ImageTokens: 500, OutputTokens: 1500}, resp.Usage)
}

func TestOpenAIEditImageSingleImageField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Len(t, r.MultipartForm.File["image"], 1)
		assert.Empty(t, r.MultipartForm.File["image[]"])
		w.Write([]byte(`{"data":[{"b64_json":"QUJD"}]}`))
	}))
	defer server.Close()

	resp, err := NewOpenAIProvider(server.URL).EditImage(context.Background(), "sk-test", ImageEditRequest{
		Images: [][]byte{[]byte("item")}, Prompt: "packshot", Size: PackshotSize, Quality: models.QualityLow,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), resp.Image)
	assert.Equal(t, models.UsageDelta{}, resp.Usage)
}

func TestOpenAIInferStructured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4.1-nano", payload["model"])
		assert.Equal(t, false, payload["store"])
		assert.InDelta(t, 0.03, payload["temperature"], 1e-9)
		assert.EqualValues(t, 100, payload["max_output_tokens"])

		format := payload["text"].(map[string]interface{})["format"].(map[string]interface{})
		assert.Equal(t, "json_schema", format["type"])
		assert.Equal(t, "item_metadata", format["name"])
		assert.Equal(t, true, format["strict"])
		schema := format["schema"].(map[string]interface{})
		assert.Equal(t, false, schema["additionalProperties"])
		category := schema["properties"].(map[string]interface{})["category"].(map[string]interface{})
		assert.Equal(t, []interface{}{"Tops", "Shoes"}, category["enum"])

		input := payload["input"].([]interface{})
		require.Len(t, input, 2)
		user := input[1].(map[string]interface{})["content"].([]interface{})
		require.Len(t, user, 2)
		assert.Equal(t, "data:image/png;base64,aW1n", user[1].(map[string]interface{})["image_url"])

		w.Write([]byte(`{
			"output":[{"type":"message","content":[{"type":"output_text","text":"{\"name\":\"Sneakers\",\"category\":\"Shoes\",\"description\":\"White leather sneakers.\"}"}]}],
			"usage":{"input_tokens":420,"output_tokens":25,"input_tokens_details":{"cached_tokens":20}}
		}`))
	}))
	defer server.Close()

	resp, err := NewOpenAIProvider(server.URL).InferStructured(context.Background(), "sk-test", StructuredRequest{
		SystemPrompt:    metadataSystemPrompt,
		UserPrompt:      metadataUserPrompt([]string{"Tops", "Shoes"}),
		Image:           []byte("img"),
		SchemaName:      "item_metadata",
		Schema:          metadataSchema([]string{"Tops", "Shoes"}),
		MaxOutputTokens: 100,
		Temperature:     0.03,
		TopP:            0.67,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Sneakers","category":"Shoes","description":"White leather sneakers."}`, string(resp.Output))
	assert.Equal(t, models.UsageDelta{TextTokens: 20, ImageTokens: 400, OutputTokens: 25}, resp.Usage)
}

func TestOpenAIInferStructuredMissingOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[{"type":"reasoning","content":[]}],"usage":{"input_tokens":10,"output_tokens":3}}`))
	}))
	defer server.Close()

	resp, err := NewOpenAIProvider(server.URL).InferStructured(context.Background(), "sk-test", StructuredRequest{
		Schema: validationSchema,
	})
	assert.ErrorIs(t, err, models.ErrGeneration)
	require.NotNil(t, resp)
	assert.Equal(t, int64(3), resp.Usage.OutputTokens)
}

func TestOpenAIMonthCostPermission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Missing scopes: api.usage.read"}}`))
	}))
	defer server.Close()

	_, err := NewOpenAIProvider(server.URL).MonthCost(context.Background(), "sk-test", MonthStart(fixedNow))
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
	var permErr *models.PermissionError
	require.True(t, errors.As(err, &permErr))
	assert.Equal(t, "Missing scopes: api.usage.read", permErr.Message)
}
