package services

import (
	"context"
	"strings"

	"tryonstudio/models"
	"tryonstudio/store"
)

type CredentialValidator interface {
	ValidateCredential(ctx context.Context, credential string) bool
}

// Preferences are the per-installation records: credential, quality tier and
// the onboarding flag.
type Preferences struct {
	settings  *store.Settings
	validator CredentialValidator
}

func NewPreferences(settings *store.Settings, validator CredentialValidator) *Preferences {
	return &Preferences{settings: settings, validator: validator}
}

// SaveCredential stores key only when the provider accepts it.
func (p *Preferences) SaveCredential(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return models.NewValidationError("api_key", "API key is required")
	}
	if !p.validator.ValidateCredential(ctx, key) {
		return models.NewValidationError("api_key", "invalid API key")
	}
	return p.settings.Put(ctx, models.SettingCredential, key)
}

// Credential returns the stored key, or "" when none is stored.
func (p *Preferences) Credential(ctx context.Context) (string, error) {
	var key string
	if _, err := p.settings.Get(ctx, models.SettingCredential, &key); err != nil {
		return "", err
	}
	return key, nil
}

func (p *Preferences) ClearCredential(ctx context.Context) error {
	return p.settings.Delete(ctx, models.SettingCredential)
}

func (p *Preferences) Quality(ctx context.Context) (models.Quality, error) {
	var quality models.Quality
	found, err := p.settings.Get(ctx, models.SettingQuality, &quality)
	if err != nil {
		return models.QualityLow, err
	}
	if !found || !quality.Valid() {
		return models.QualityLow, nil
	}
	return quality, nil
}

func (p *Preferences) SetQuality(ctx context.Context, quality models.Quality) error {
	if !quality.Valid() {
		return models.NewValidationError("quality", "must be one of low, medium, high")
	}
	return p.settings.Put(ctx, models.SettingQuality, quality)
}

func (p *Preferences) OnboardingSeen(ctx context.Context) (bool, error) {
	var seen bool
	_, err := p.settings.Get(ctx, models.SettingOnboardingSeen, &seen)
	return seen, err
}

func (p *Preferences) MarkOnboardingSeen(ctx context.Context) error {
	return p.settings.Put(ctx, models.SettingOnboardingSeen, true)
}

func (p *Preferences) ResetOnboarding(ctx context.Context) error {
	return p.settings.Delete(ctx, models.SettingOnboardingSeen)
}
