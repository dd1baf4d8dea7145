package store

import (
	"context"

	"tryonstudio/models"

	"gorm.io/gorm"
)

// CreateWardrobeItem assigns the identifier and creation time, starts
// TokensUsed at 1 and persists the item.
func (s *EntityStore) CreateWardrobeItem(ctx context.Context, item *models.WardrobeItem) (uint, error) {
	item.ID = 0
	item.CreatedAt = s.now()
	item.TokensUsed = 1
	if err := s.check(item); err != nil {
		return 0, err
	}
	err := s.mutate(ctx, WardrobeItems, func(tx *gorm.DB) (bool, error) {
		return true, tx.Create(item).Error
	})
	if err != nil {
		return 0, err
	}
	return item.ID, nil
}

func (s *EntityStore) GetWardrobeItem(ctx context.Context, id uint) (*models.WardrobeItem, error) {
	var item models.WardrobeItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(WardrobeItems, id, err)
	}
	return &item, nil
}

// UpdateWardrobeItem merges patch into the stored item.
func (s *EntityStore) UpdateWardrobeItem(ctx context.Context, id uint, patch models.WardrobeItemPatch) error {
	if err := s.check(patch); err != nil {
		return err
	}
	if patch.Name != nil && *patch.Name == "" {
		return models.NewValidationError("Name", "must not be empty")
	}
	if patch.Category != nil && *patch.Category == "" {
		return models.NewValidationError("Category", "must not be empty")
	}
	columns := patch.Columns()
	return s.mutate(ctx, WardrobeItems, func(tx *gorm.DB) (bool, error) {
		var item models.WardrobeItem
		if err := tx.Select("id").First(&item, "id = ?", id).Error; err != nil {
			return false, notFound(WardrobeItems, id, err)
		}
		if len(columns) == 0 {
			return false, nil
		}
		return true, tx.Model(&models.WardrobeItem{}).Where("id = ?", id).Updates(columns).Error
	})
}

// ReplacePackshot stores a regenerated packshot and bumps TokensUsed by one
// in the same statement.
func (s *EntityStore) ReplacePackshot(ctx context.Context, id uint, packshot string) (*models.WardrobeItem, error) {
	if packshot == "" {
		return nil, models.NewValidationError("packshot_image", "must not be empty")
	}
	var updated models.WardrobeItem
	err := s.mutate(ctx, WardrobeItems, func(tx *gorm.DB) (bool, error) {
		result := tx.Model(&models.WardrobeItem{}).Where("id = ?", id).Updates(map[string]interface{}{
			"packshot_image": packshot,
			"tokens_used":    gorm.Expr("tokens_used + ?", 1),
		})
		if result.Error != nil {
			return false, result.Error
		}
		if result.RowsAffected == 0 {
			return false, &models.NotFoundError{Collection: string(WardrobeItems), ID: id}
		}
		return true, tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *EntityStore) DeleteWardrobeItem(ctx context.Context, id uint) error {
	return s.Delete(ctx, WardrobeItems, id)
}

// ListWardrobeItems returns every item, newest first.
func (s *EntityStore) ListWardrobeItems(ctx context.Context) ([]models.WardrobeItem, error) {
	var items []models.WardrobeItem
	err := s.db.WithContext(ctx).Order(newestFirst).Find(&items).Error
	return items, err
}

func (s *EntityStore) ListWardrobeItemsByCategory(ctx context.Context, category string) ([]models.WardrobeItem, error) {
	var items []models.WardrobeItem
	err := s.db.WithContext(ctx).Where("category = ?", category).Order(newestFirst).Find(&items).Error
	return items, err
}

func (s *EntityStore) FindWardrobeItems(ctx context.Context, ids []uint) (map[uint]models.WardrobeItem, error) {
	var items []models.WardrobeItem
	if len(ids) == 0 {
		return map[uint]models.WardrobeItem{}, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.WardrobeItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID, nil
}
