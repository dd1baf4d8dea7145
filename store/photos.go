package store

import (
	"context"

	"tryonstudio/models"

	"gorm.io/gorm"
)

func (s *EntityStore) CreateProfilePhoto(ctx context.Context, photo *models.ProfilePhoto) (uint, error) {
	photo.ID = 0
	photo.CreatedAt = s.now()
	if err := s.check(photo); err != nil {
		return 0, err
	}
	err := s.mutate(ctx, ProfilePhotos, func(tx *gorm.DB) (bool, error) {
		return true, tx.Create(photo).Error
	})
	if err != nil {
		return 0, err
	}
	return photo.ID, nil
}

func (s *EntityStore) GetProfilePhoto(ctx context.Context, id uint) (*models.ProfilePhoto, error) {
	var photo models.ProfilePhoto
	if err := s.db.WithContext(ctx).First(&photo, "id = ?", id).Error; err != nil {
		return nil, notFound(ProfilePhotos, id, err)
	}
	return &photo, nil
}

// UpdateProfilePhoto replaces the image. The photo type has no patch field.
func (s *EntityStore) UpdateProfilePhoto(ctx context.Context, id uint, patch models.ProfilePhotoPatch) error {
	if err := s.check(patch); err != nil {
		return err
	}
	columns := patch.Columns()
	return s.mutate(ctx, ProfilePhotos, func(tx *gorm.DB) (bool, error) {
		var photo models.ProfilePhoto
		if err := tx.Select("id").First(&photo, "id = ?", id).Error; err != nil {
			return false, notFound(ProfilePhotos, id, err)
		}
		if len(columns) == 0 {
			return false, nil
		}
		return true, tx.Model(&models.ProfilePhoto{}).Where("id = ?", id).Updates(columns).Error
	})
}

func (s *EntityStore) DeleteProfilePhoto(ctx context.Context, id uint) error {
	return s.Delete(ctx, ProfilePhotos, id)
}

func (s *EntityStore) ListProfilePhotos(ctx context.Context) ([]models.ProfilePhoto, error) {
	var photos []models.ProfilePhoto
	err := s.db.WithContext(ctx).Order(newestFirst).Find(&photos).Error
	return photos, err
}

func (s *EntityStore) ListProfilePhotosByType(ctx context.Context, photoType models.PhotoType) ([]models.ProfilePhoto, error) {
	var photos []models.ProfilePhoto
	err := s.db.WithContext(ctx).Where("type = ?", string(photoType)).Order(newestFirst).Find(&photos).Error
	return photos, err
}
