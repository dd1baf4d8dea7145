// Package tasks sequences user intent into generation calls and store
// mutations. Each flow reads what it needs from the store, calls the
// generation client and writes the artifact back.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"tryonstudio/models"
	"tryonstudio/services"
	"tryonstudio/store"

	"github.com/getsentry/sentry-go"
)

// ErrBusy is returned when the same flow is submitted again while the first
// submission is still pending.
var ErrBusy = errors.New("operation already in progress")

type Runner struct {
	Store       *store.EntityStore
	Generation  *services.GenerationClient
	Resizer     *services.ImageResizer
	Categories  *services.CategoryService
	Preferences *services.Preferences

	mu      sync.Mutex
	pending map[string]bool
}

func NewRunner(
	entities *store.EntityStore,
	generation *services.GenerationClient,
	resizer *services.ImageResizer,
	categories *services.CategoryService,
	preferences *services.Preferences,
) *Runner {
	return &Runner{
		Store:       entities,
		Generation:  generation,
		Resizer:     resizer,
		Categories:  categories,
		Preferences: preferences,
		pending:     map[string]bool{},
	}
}

// acquire marks key as pending until release is called.
func (r *Runner) acquire(key string) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[key] {
		return nil, fmt.Errorf("%s: %w", key, ErrBusy)
	}
	r.pending[key] = true
	return func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
	}, nil
}

func (r *Runner) credential(ctx context.Context) (string, error) {
	credential, err := r.Preferences.Credential(ctx)
	if err != nil {
		return "", err
	}
	if credential == "" {
		return "", models.NewValidationError("api_key", "API key is required")
	}
	return credential, nil
}

// storageImage bounds an uploaded image to StorageBound and re-encodes it.
func (r *Runner) storageImage(ctx context.Context, field string, value string) (string, error) {
	resized, err := r.Resizer.ResizeBase64(ctx, field, value, services.StorageBound)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			return "", err
		}
		return "", models.NewValidationError(field, "%v", err)
	}
	return services.EncodeImage(resized), nil
}

// canonicalCategory resolves name against the current category set.
func (r *Runner) canonicalCategory(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.NewValidationError("category", "category is required")
	}
	canonical, ok, err := r.Categories.Canonical(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", models.NewValidationError("category", "unknown category %q", name)
	}
	return canonical, nil
}

func persistFailed(subject string, err error) error {
	log.Printf("[%s] persist failed: %v", subject, err)
	sentry.CaptureException(fmt.Errorf("[%s] persist failed: %w", subject, err))
	return err
}
