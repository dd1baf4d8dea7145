package tasks

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tryonstudio/models"
	"tryonstudio/services"
)

type UploadWardrobeItemIn struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Category    string  `json:"category" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Image       string  `json:"image" validate:"required"`
}

type EditWardrobeItemIn struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// AnalyzeItem suggests a name, category and description for an item photo.
// The category is returned in the category set's own spelling, or empty
// when the model picked something outside the set.
func (r *Runner) AnalyzeItem(ctx context.Context, image string) (*models.ItemMetadata, error) {
	release, err := r.acquire("analyze-item")
	if err != nil {
		return nil, err
	}
	defer release()

	credential, err := r.credential(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := r.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	metadata, err := r.Generation.AnalyzeItemMetadata(ctx, credential, image, categories)
	if err != nil {
		return nil, err
	}
	canonical, ok, err := r.Categories.Canonical(ctx, metadata.Category)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Printf("[Analyze] category %q is not in the set, leaving it blank", metadata.Category)
		canonical = ""
	}
	metadata.Category = canonical
	return metadata, nil
}

// UploadWardrobeItem stores a new item once its packshot was extracted.
// Nothing is written when extraction fails.
func (r *Runner) UploadWardrobeItem(ctx context.Context, in UploadWardrobeItemIn) (*models.WardrobeItem, error) {
	release, err := r.acquire("upload-item")
	if err != nil {
		return nil, err
	}
	defer release()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "name is required")
	}
	category, err := r.canonicalCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}
	credential, err := r.credential(ctx)
	if err != nil {
		return nil, err
	}
	quality, err := r.Preferences.Quality(ctx)
	if err != nil {
		return nil, err
	}
	original, err := r.storageImage(ctx, "image", in.Image)
	if err != nil {
		return nil, err
	}

	packshot, err := r.Generation.ExtractPackshot(ctx, credential, original, name, quality)
	if err != nil {
		return nil, err
	}

	item := &models.WardrobeItem{
		Name:          name,
		Category:      category,
		Description:   in.Description,
		OriginalImage: original,
		PackshotImage: &packshot,
	}
	if _, err := r.Store.CreateWardrobeItem(ctx, item); err != nil {
		return nil, persistFailed("Wardrobe", err)
	}
	log.Printf("[Wardrobe %d] created in %s", item.ID, item.Category)
	return item, nil
}

// RegeneratePackshot extracts a fresh packshot from the stored original.
func (r *Runner) RegeneratePackshot(ctx context.Context, id uint) (*models.WardrobeItem, error) {
	release, err := r.acquire(fmt.Sprintf("regenerate:%d", id))
	if err != nil {
		return nil, err
	}
	defer release()

	item, err := r.Store.GetWardrobeItem(ctx, id)
	if err != nil {
		return nil, err
	}
	credential, err := r.credential(ctx)
	if err != nil {
		return nil, err
	}
	quality, err := r.Preferences.Quality(ctx)
	if err != nil {
		return nil, err
	}

	packshot, err := r.Generation.ExtractPackshot(ctx, credential, item.OriginalImage, item.Label(), quality)
	if err != nil {
		return nil, err
	}
	updated, err := r.Store.ReplacePackshot(ctx, id, packshot)
	if err != nil {
		return nil, persistFailed(fmt.Sprintf("Wardrobe %d", id), err)
	}
	log.Printf("[Wardrobe %d] packshot regenerated, tokens used %d", id, updated.TokensUsed)
	return updated, nil
}

// EditWardrobeItem changes name, category or description.
func (r *Runner) EditWardrobeItem(ctx context.Context, id uint, in EditWardrobeItemIn) (*models.WardrobeItem, error) {
	patch := models.WardrobeItemPatch{Description: in.Description}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.NewValidationError("name", "name is required")
		}
		patch.Name = &name
	}
	if in.Category != nil {
		category, err := r.canonicalCategory(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		patch.Category = &category
	}
	if err := r.Store.UpdateWardrobeItem(ctx, id, patch); err != nil {
		return nil, err
	}
	return r.Store.GetWardrobeItem(ctx, id)
}

func (r *Runner) DeleteWardrobeItem(ctx context.Context, id uint) error {
	return r.Store.DeleteWardrobeItem(ctx, id)
}

// ItemDisplay is an item ready to be shown: its best image as a data url.
type ItemDisplay struct {
	models.WardrobeItem
	DisplayURL string `json:"display_url"`
}

func NewItemDisplay(item models.WardrobeItem) ItemDisplay {
	return ItemDisplay{WardrobeItem: item, DisplayURL: services.DataURL(item.DisplayImage(), "image/png")}
}
