package store

import (
	"context"

	"tryonstudio/models"

	"gorm.io/gorm"
)

// CreateComposition persists a generated result. The profile photo and every
// referenced wardrobe item must exist at this point; nothing keeps them alive
// afterwards.
func (s *EntityStore) CreateComposition(ctx context.Context, composition *models.Composition) (uint, error) {
	composition.ID = 0
	composition.CreatedAt = s.now()
	if err := s.check(composition); err != nil {
		return 0, err
	}
	seen := make(map[uint]bool, len(composition.WardrobeItemIDs))
	for _, id := range composition.WardrobeItemIDs {
		if seen[id] {
			return 0, models.NewValidationError("WardrobeItemIDs", "item %d referenced twice", id)
		}
		seen[id] = true
	}

	err := s.mutate(ctx, Compositions, func(tx *gorm.DB) (bool, error) {
		var count int64
		if err := tx.Model(&models.ProfilePhoto{}).Where("id = ?", composition.ProfilePhotoID).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, &models.NotFoundError{Collection: string(ProfilePhotos), ID: composition.ProfilePhotoID}
		}
		var existing []uint
		ids := []uint(composition.WardrobeItemIDs)
		if err := tx.Model(&models.WardrobeItem{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
			return false, err
		}
		found := make(map[uint]bool, len(existing))
		for _, id := range existing {
			found[id] = true
		}
		for _, id := range ids {
			if !found[id] {
				return false, &models.NotFoundError{Collection: string(WardrobeItems), ID: id}
			}
		}
		return true, tx.Create(composition).Error
	})
	if err != nil {
		return 0, err
	}
	return composition.ID, nil
}

func (s *EntityStore) GetComposition(ctx context.Context, id uint) (*models.Composition, error) {
	var composition models.Composition
	if err := s.db.WithContext(ctx).First(&composition, "id = ?", id).Error; err != nil {
		return nil, notFound(Compositions, id, err)
	}
	return &composition, nil
}

func (s *EntityStore) DeleteComposition(ctx context.Context, id uint) error {
	return s.Delete(ctx, Compositions, id)
}

func (s *EntityStore) ListCompositions(ctx context.Context) ([]models.Composition, error) {
	var compositions []models.Composition
	err := s.db.WithContext(ctx).Order(newestFirst).Find(&compositions).Error
	return compositions, err
}

func (s *EntityStore) ListCompositionsByProfilePhoto(ctx context.Context, photoID uint) ([]models.Composition, error) {
	var compositions []models.Composition
	err := s.db.WithContext(ctx).Where("profile_photo_id = ?", photoID).Order(newestFirst).Find(&compositions).Error
	return compositions, err
}
