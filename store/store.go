// Package store holds the three entity collections (wardrobe items, profile
// photos, compositions) and the keyed settings records that live beside them.
//
// Every committed mutation is published to the collection's subscribers in
// commit order; live queries built with Live re-run on each publication.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"tryonstudio/models"

	"github.com/go-playground/validator"
	"gorm.io/gorm"
)

type Collection string

const (
	WardrobeItems Collection = "wardrobeItems"
	ProfilePhotos Collection = "profilePhotos"
	Compositions  Collection = "compositions"
)

var Collections = []Collection{WardrobeItems, ProfilePhotos, Compositions}

func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

func (c Collection) model() interface{} {
	switch c {
	case WardrobeItems:
		return &models.WardrobeItem{}
	case ProfilePhotos:
		return &models.ProfilePhoto{}
	case Compositions:
		return &models.Composition{}
	}
	return nil
}

const newestFirst = "created_at desc, id desc"

type EntityStore struct {
	db       *gorm.DB
	validate *validator.Validate
	now      func() time.Time

	// serializes commit+publish so subscribers observe commit order
	writeMu sync.Mutex
	hub     *changeHub
}

type Option func(*EntityStore)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *EntityStore) {
		s.now = now
	}
}

func New(db *gorm.DB, opts ...Option) *EntityStore {
	v := validator.New()
	v.RegisterValidation("phototype", models.ValidatePhotoType)
	s := &EntityStore{
		db:       db,
		validate: v,
		now:      func() time.Time { return time.Now().UTC() },
		hub:      newChangeHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EntityStore) DB() *gorm.DB {
	return s.db
}

// Subscribe registers fn to run after every committed mutation of col.
// Callbacks run synchronously on the mutating goroutine and must not write
// to the store themselves.
func (s *EntityStore) Subscribe(col Collection, fn func()) (unsubscribe func()) {
	return s.hub.subscribe(col, fn)
}

// mutate runs op in a transaction and publishes col when op reports a change.
func (s *EntityStore) mutate(ctx context.Context, col Collection, op func(tx *gorm.DB) (bool, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = op(tx)
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		s.hub.publish(col)
	}
	return nil
}

func (s *EntityStore) check(entity interface{}) error {
	err := s.validate.Struct(entity)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return models.NewValidationError(fe.Field(), "failed on %q", fe.Tag())
	}
	return models.NewValidationError("", "%v", err)
}

func notFound(col Collection, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.NotFoundError{Collection: string(col), ID: id}
	}
	return err
}

// Delete removes id from col. Deleting an absent id is a no-op.
func (s *EntityStore) Delete(ctx context.Context, col Collection, id uint) error {
	model := col.model()
	if model == nil {
		return models.NewValidationError("collection", "unknown collection %q", col)
	}
	return s.mutate(ctx, col, func(tx *gorm.DB) (bool, error) {
		result := tx.Where("id = ?", id).Delete(model)
		return result.RowsAffected > 0, result.Error
	})
}

// Exists reports whether id is present in col.
func (s *EntityStore) Exists(ctx context.Context, col Collection, id uint) (bool, error) {
	model := col.model()
	if model == nil {
		return false, models.NewValidationError("collection", "unknown collection %q", col)
	}
	var count int64
	err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
