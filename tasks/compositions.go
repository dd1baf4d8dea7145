package tasks

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"tryonstudio/models"
)

type GenerateCompositionIn struct {
	Name           string `json:"name" validate:"omitempty,max=100"`
	ProfilePhotoID uint   `json:"profile_photo_id" validate:"required"`
	// Selection maps a category to the item chosen for it.
	Selection map[string]uint `json:"selection" validate:"required,min=1"`
}

type slot struct {
	category string
	itemID   uint
}

// orderSelection resolves the selection into one slot per category, in
// category-set order. Categories that are no longer in the set follow,
// sorted by name. Keys are matched case-insensitively; two keys naming the
// same category or one item chosen for two categories are rejected.
func orderSelection(categories []string, selection map[string]uint) ([]slot, error) {
	byFold := map[string]slot{}
	seenItems := map[uint]string{}
	keys := make([]string, 0, len(selection))
	for key := range selection {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		id := selection[key]
		name := strings.TrimSpace(key)
		if id == 0 || name == "" {
			continue
		}
		folded := strings.ToLower(name)
		if prev, ok := byFold[folded]; ok {
			return nil, models.NewValidationError("selection", "category %q selected twice (%q)", prev.category, name)
		}
		if other, ok := seenItems[id]; ok {
			return nil, models.NewValidationError("selection", "item %d selected for both %q and %q", id, other, name)
		}
		byFold[folded] = slot{category: name, itemID: id}
		seenItems[id] = name
	}

	slots := make([]slot, 0, len(byFold))
	for _, category := range categories {
		folded := strings.ToLower(category)
		if s, ok := byFold[folded]; ok {
			slots = append(slots, slot{category: category, itemID: s.itemID})
			delete(byFold, folded)
		}
	}
	rest := make([]string, 0, len(byFold))
	for folded := range byFold {
		rest = append(rest, folded)
	}
	sort.Strings(rest)
	for _, folded := range rest {
		slots = append(slots, byFold[folded])
	}
	return slots, nil
}

// GenerateComposition dresses the profile photo in the selected items and
// stores the result.
func (r *Runner) GenerateComposition(ctx context.Context, in GenerateCompositionIn) (*models.Composition, error) {
	release, err := r.acquire("composition")
	if err != nil {
		return nil, err
	}
	defer release()

	categories, err := r.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	slots, err := orderSelection(categories, in.Selection)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, models.NewValidationError("selection", "select at least one item")
	}

	photo, err := r.Store.GetProfilePhoto(ctx, in.ProfilePhotoID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.itemID)
	}
	items, err := r.Store.FindWardrobeItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	images := make([]string, 0, len(ids))
	descriptions := make([]string, 0, len(ids))
	labels := make([]string, 0, len(ids))
	for _, s := range slots {
		item, ok := items[s.itemID]
		if !ok {
			return nil, &models.NotFoundError{Collection: "wardrobeItems", ID: s.itemID}
		}
		if !strings.EqualFold(strings.TrimSpace(item.Category), s.category) {
			return nil, models.NewValidationError("selection", "item %d is %q, not %q", item.ID, item.Category, s.category)
		}
		images = append(images, item.DisplayImage())
		descriptions = append(descriptions, item.Label())
		labels = append(labels, item.Name)
	}

	credential, err := r.credential(ctx)
	if err != nil {
		return nil, err
	}
	quality, err := r.Preferences.Quality(ctx)
	if err != nil {
		return nil, err
	}

	result, err := r.Generation.GenerateComposition(ctx, credential, photo.Image, images, descriptions, quality)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.Join(labels, " + ")
	}
	composition := &models.Composition{
		Name:            name,
		ProfilePhotoID:  photo.ID,
		WardrobeItemIDs: ids,
		ResultImage:     result,
	}
	if _, err := r.Store.CreateComposition(ctx, composition); err != nil {
		return nil, persistFailed(fmt.Sprintf("Composition photo %d", photo.ID), err)
	}
	log.Printf("[Composition %d] generated with %d items", composition.ID, len(ids))
	return composition, nil
}

func (r *Runner) DeleteComposition(ctx context.Context, id uint) error {
	return r.Store.DeleteComposition(ctx, id)
}
