package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tryonstudio/models"
	"tryonstudio/store"

	"golang.org/x/text/cases"
)

var DefaultCategories = []string{"Tops", "Bottoms", "Dresses", "Outerwear", "Shoes", "Accessories"}

// CategoryService manages the ordered, user-editable category set. Items
// carry their category as a plain label, so edits here never touch them.
type CategoryService struct {
	mu       sync.Mutex
	settings *store.Settings
}

func NewCategoryService(settings *store.Settings) *CategoryService {
	return &CategoryService{settings: settings}
}

func foldKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func (s *CategoryService) load(ctx context.Context) ([]string, error) {
	var categories []string
	found, err := s.settings.Get(ctx, models.SettingCategories, &categories)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if !found {
		return append([]string(nil), DefaultCategories...), nil
	}
	return categories, nil
}

func (s *CategoryService) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Canonical returns the set's spelling of name, matched case-insensitively.
func (s *CategoryService) Canonical(ctx context.Context, name string) (string, bool, error) {
	categories, err := s.List(ctx)
	if err != nil {
		return "", false, err
	}
	key := foldKey(name)
	for _, category := range categories {
		if foldKey(category) == key {
			return category, true, nil
		}
	}
	return "", false, nil
}

// Add appends name. Adding a name already in the set is a no-op.
func (s *CategoryService) Add(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "category name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	categories, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	key := foldKey(name)
	for _, category := range categories {
		if foldKey(category) == key {
			return categories, nil
		}
	}
	categories = append(categories, name)
	return categories, s.settings.Put(ctx, models.SettingCategories, categories)
}

// Remove drops name from the set. Removing an absent name is a no-op.
func (s *CategoryService) Remove(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	categories, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	key := foldKey(name)
	kept := make([]string, 0, len(categories))
	for _, category := range categories {
		if foldKey(category) != key {
			kept = append(kept, category)
		}
	}
	if len(kept) == len(categories) {
		return categories, nil
	}
	return kept, s.settings.Put(ctx, models.SettingCategories, kept)
}

// Reorder replaces the whole set with names, in order.
func (s *CategoryService) Reorder(ctx context.Context, names []string) ([]string, error) {
	seen := map[string]bool{}
	categories := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, models.NewValidationError("categories", "category name is required")
		}
		key := foldKey(name)
		if seen[key] {
			return nil, models.NewValidationError("categories", "duplicate category %q", name)
		}
		seen[key] = true
		categories = append(categories, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return categories, s.settings.Put(ctx, models.SettingCategories, categories)
}
