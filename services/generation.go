package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"tryonstudio/models"

	"github.com/getsentry/sentry-go"
)

// structured inference sampling, kept near-deterministic
const (
	inferenceTemperature = 0.03
	inferenceTopP        = 0.67
	inferenceMaxTokens   = 100
)

// GenerationClient shapes every call to the generation provider. It holds no
// entity state; callers hand it exactly the payloads it needs. Images cross
// its boundary as base64 strings.
type GenerationClient struct {
	provider GenerationProvider
	usage    *UsageService
	resizer  *ImageResizer
	whiten   bool
}

type GenerationOption func(*GenerationClient)

// WithPackshotWhitening post-processes packshots with WhitenBackground.
func WithPackshotWhitening(enabled bool) GenerationOption {
	return func(c *GenerationClient) {
		c.whiten = enabled
	}
}

func NewGenerationClient(provider GenerationProvider, usage *UsageService, resizer *ImageResizer, opts ...GenerationOption) *GenerationClient {
	c := &GenerationClient{provider: provider, usage: usage, resizer: resizer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func requireCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return models.NewValidationError("credential", "API key is required")
	}
	return nil
}

func (c *GenerationClient) record(ctx context.Context, delta models.UsageDelta) {
	if c.usage == nil {
		return
	}
	if err := c.usage.Add(ctx, delta); err != nil {
		log.Printf("[Generation] usage not persisted: %v", err)
	}
}

func generationFailed(operation string, err error) error {
	log.Printf("[Generation] %s failed: %v", operation, err)
	sentry.CaptureException(fmt.Errorf("%s: %w", operation, err))
	return err
}

// ValidateCredential reports whether the provider accepts credential.
func (c *GenerationClient) ValidateCredential(ctx context.Context, credential string) bool {
	if requireCredential(credential) != nil {
		return false
	}
	count, err := c.provider.ListModels(ctx, credential)
	if err != nil {
		log.Printf("[Generation] credential rejected: %v", err)
		return false
	}
	return count > 0
}

// ExtractPackshot isolates the item in image onto a white backdrop and
// returns the result as base64.
func (c *GenerationClient) ExtractPackshot(ctx context.Context, credential string, image string, itemLabel string, quality models.Quality) (string, error) {
	if err := requireCredential(credential); err != nil {
		return "", err
	}
	if !quality.Valid() {
		return "", models.NewValidationError("quality", "must be one of low, medium, high")
	}
	resized, err := c.resizer.ResizeBase64(ctx, "image", image, AnalysisBound)
	if err != nil {
		return "", models.NewValidationError("image", "%v", err)
	}

	resp, err := c.provider.EditImage(ctx, credential, ImageEditRequest{
		Images:  [][]byte{resized},
		Prompt:  packshotPrompt(itemLabel),
		Size:    PackshotSize,
		Quality: quality,
	})
	if resp != nil {
		c.record(ctx, resp.Usage)
	}
	if err != nil {
		return "", generationFailed("extract packshot", err)
	}

	packshot := resp.Image
	if c.whiten {
		whitened, err := WhitenBackground(packshot, WhitenThreshold, WhitenBlurSigma, WhitenProtection)
		if err != nil {
			log.Printf("[Generation] packshot whitening skipped: %v", err)
		} else {
			packshot = whitened
		}
	}
	return EncodeImage(packshot), nil
}

// AnalyzeItemMetadata infers a name, a category from categories and a short
// description for the item in image.
func (c *GenerationClient) AnalyzeItemMetadata(ctx context.Context, credential string, image string, categories []string) (*models.ItemMetadata, error) {
	if err := requireCredential(credential); err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, models.NewValidationError("categories", "at least one category is required")
	}
	resized, err := c.resizer.ResizeBase64(ctx, "image", image, AnalysisBound)
	if err != nil {
		return nil, models.NewValidationError("image", "%v", err)
	}

	var metadata models.ItemMetadata
	if err := c.infer(ctx, credential, StructuredRequest{
		SystemPrompt: metadataSystemPrompt,
		UserPrompt:   metadataUserPrompt(categories),
		Image:        resized,
		SchemaName:   "item_metadata",
		Schema:       metadataSchema(categories),
	}, "analyze item", &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// ValidateProfilePhoto checks image against the composition rules of
// photoType. The result is advisory: a valid photo may still carry a reason.
func (c *GenerationClient) ValidateProfilePhoto(ctx context.Context, credential string, image string, photoType models.PhotoType) (*models.PhotoValidation, error) {
	if err := requireCredential(credential); err != nil {
		return nil, err
	}
	if !photoType.Valid() {
		return nil, models.NewValidationError("type", "unknown photo type %q", photoType)
	}
	resized, err := c.resizer.ResizeBase64(ctx, "image", image, AnalysisBound)
	if err != nil {
		return nil, models.NewValidationError("image", "%v", err)
	}

	var validation models.PhotoValidation
	if err := c.infer(ctx, credential, StructuredRequest{
		SystemPrompt: validationSystemPrompt,
		UserPrompt:   photoRequirement(photoType),
		Image:        resized,
		SchemaName:   "image_validation",
		Schema:       validationSchema,
	}, "validate photo", &validation); err != nil {
		return nil, err
	}
	return &validation, nil
}

func (c *GenerationClient) infer(ctx context.Context, credential string, req StructuredRequest, operation string, out interface{}) error {
	req.Temperature = inferenceTemperature
	req.TopP = inferenceTopP
	req.MaxOutputTokens = inferenceMaxTokens

	resp, err := c.provider.InferStructured(ctx, credential, req)
	if resp != nil {
		c.record(ctx, resp.Usage)
	}
	if err != nil {
		return generationFailed(operation, err)
	}
	if err := json.Unmarshal(resp.Output, out); err != nil {
		return generationFailed(operation, &models.GenerationError{
			Operation: operation,
			Message:   "invalid response structure",
			Err:       err,
		})
	}
	return nil
}

// GenerateComposition renders the person in pose wearing every item.
// itemImages and itemDescriptions are matched by position.
func (c *GenerationClient) GenerateComposition(ctx context.Context, credential string, pose string, itemImages []string, itemDescriptions []string, quality models.Quality) (string, error) {
	if len(itemImages) != len(itemDescriptions) {
		return "", models.NewValidationError("items", "got %d item images but %d descriptions", len(itemImages), len(itemDescriptions))
	}
	if len(itemImages) == 0 {
		return "", models.NewValidationError("items", "at least one item is required")
	}
	if err := requireCredential(credential); err != nil {
		return "", err
	}
	if !quality.Valid() {
		return "", models.NewValidationError("quality", "must be one of low, medium, high")
	}

	images := make([][]byte, 0, len(itemImages)+1)
	resizedPose, err := c.resizer.ResizeBase64(ctx, "pose", pose, AnalysisBound)
	if err != nil {
		return "", models.NewValidationError("pose", "%v", err)
	}
	images = append(images, resizedPose)
	for i, item := range itemImages {
		field := fmt.Sprintf("items[%d]", i)
		resized, err := c.resizer.ResizeBase64(ctx, field, item, AnalysisBound)
		if err != nil {
			return "", models.NewValidationError(field, "%v", err)
		}
		images = append(images, resized)
	}

	resp, err := c.provider.EditImage(ctx, credential, ImageEditRequest{
		Images:  images,
		Prompt:  compositionPrompt(itemDescriptions),
		Size:    CompositionSize,
		Quality: quality,
	})
	if resp != nil {
		c.record(ctx, resp.Usage)
	}
	if err != nil {
		return "", generationFailed("generate composition", err)
	}
	return EncodeImage(resp.Image), nil
}
