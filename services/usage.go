package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"tryonstudio/models"
	"tryonstudio/store"

	"github.com/getsentry/sentry-go"
)

// UsageService holds the cumulative token counters of this installation.
// One instance is built at startup and shared by every consumer.
type UsageService struct {
	mu sync.Mutex
	// publish orders notifications the same way mu orders updates.
	publish   sync.Mutex
	settings  *store.Settings
	usage     models.TokenUsage
	observers observers[models.TokenUsage]
}

// NewUsageService restores the persisted counters, starting from zero when
// none were stored.
func NewUsageService(ctx context.Context, settings *store.Settings) (*UsageService, error) {
	s := &UsageService{settings: settings}
	if _, err := settings.Get(ctx, models.SettingTokenUsage, &s.usage); err != nil {
		return nil, fmt.Errorf("load token usage: %w", err)
	}
	return s, nil
}

// Add applies delta to the counters, persists them and notifies subscribers.
// Negative components are ignored so counters only grow between resets.
func (s *UsageService) Add(ctx context.Context, delta models.UsageDelta) error {
	s.mu.Lock()
	s.usage.InputTextTokens += nonNegative(delta.TextTokens)
	s.usage.InputImageTokens += nonNegative(delta.ImageTokens)
	s.usage.OutputTokens += nonNegative(delta.OutputTokens)
	return s.commit(ctx)
}

// Usage returns a copy of the current counters.
func (s *UsageService) Usage() models.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

func (s *UsageService) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.usage = models.TokenUsage{}
	return s.commit(ctx)
}

// Subscribe registers fn to receive the counters after every Add and Reset.
func (s *UsageService) Subscribe(fn func(models.TokenUsage)) (unsubscribe func()) {
	return s.observers.add(fn)
}

// commit persists and publishes the counters. Called with mu held; releases it.
// Subscribers see snapshots in update order and must not call Add or Reset.
func (s *UsageService) commit(ctx context.Context) error {
	snapshot := s.usage
	err := s.settings.Put(ctx, models.SettingTokenUsage, snapshot)
	s.publish.Lock()
	defer s.publish.Unlock()
	s.mu.Unlock()

	if err != nil {
		log.Printf("[Usage] failed to persist counters: %v", err)
		sentry.CaptureException(err)
	}
	s.observers.notify(snapshot)
	return err
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
