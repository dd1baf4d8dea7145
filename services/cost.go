package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tryonstudio/models"
	"tryonstudio/store"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/singleflight"
)

// CostFreshness is how long a fetched spend figure is served without refetching.
const CostFreshness = time.Hour

// CostService caches the month-to-date spend.
//
// A billing permission denial is terminal: it is persisted as an error marker
// and no further fetch is attempted.
type CostService struct {
	billing  BillingFetcher
	settings *store.Settings
	now      func() time.Time

	mu        sync.Mutex
	cache     *models.CostCache
	group     singleflight.Group
	observers observers[models.CostCache]
}

type CostOption func(*CostService)

func WithCostClock(now func() time.Time) CostOption {
	return func(s *CostService) {
		s.now = now
	}
}

func NewCostService(ctx context.Context, billing BillingFetcher, settings *store.Settings, opts ...CostOption) (*CostService, error) {
	s := &CostService{
		billing:  billing,
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	var stored models.CostCache
	found, err := settings.Get(ctx, models.SettingCostCache, &stored)
	if err != nil {
		return nil, fmt.Errorf("load cost cache: %w", err)
	}
	if found {
		s.cache = &stored
	}
	return s, nil
}

// MonthStart is the first instant of the current calendar month in UTC.
func MonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthCost returns the spend since the start of the month. It never fails:
// a denied billing read yields 0, other failures yield the last known amount.
func (s *CostService) MonthCost(ctx context.Context, credential string) float64 {
	if amount, ok := s.cached(); ok {
		return amount
	}
	v, _, _ := s.group.Do("month-cost", func() (interface{}, error) {
		// a concurrent caller may have refreshed the cache meanwhile
		if amount, ok := s.cached(); ok {
			return amount, nil
		}
		// shared by every waiting caller, so detached from the first one's cancellation
		return s.fetch(context.WithoutCancel(ctx), credential), nil
	})
	return v.(float64)
}

// cached reports the amount to serve without network access, if any.
func (s *CostService) cached() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return 0, false
	}
	if s.cache.Error == models.CostErrorPermissionDenied {
		return 0, true
	}
	if s.now().Sub(s.cache.CapturedAt) < CostFreshness {
		return s.cache.Amount, true
	}
	return 0, false
}

func (s *CostService) fetch(ctx context.Context, credential string) float64 {
	amount, err := s.billing.MonthCost(ctx, credential, MonthStart(s.now()))

	var permErr *models.PermissionError
	switch {
	case errors.As(err, &permErr):
		log.Printf("[Cost] billing read denied, cost display disabled: %s", permErr.Message)
		s.store(ctx, models.CostCache{Amount: 0, CapturedAt: s.now().UTC(), Error: models.CostErrorPermissionDenied})
		return 0
	case err != nil:
		log.Printf("[Cost] failed to fetch month cost: %v", err)
		sentry.CaptureException(fmt.Errorf("fetch month cost: %w", err))
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cache != nil {
			return s.cache.Amount
		}
		return 0
	}

	s.store(ctx, models.CostCache{Amount: amount, CapturedAt: s.now().UTC()})
	return amount
}

func (s *CostService) store(ctx context.Context, record models.CostCache) {
	s.mu.Lock()
	s.cache = &record
	s.mu.Unlock()

	if err := s.settings.Put(ctx, models.SettingCostCache, record); err != nil {
		log.Printf("[Cost] failed to persist cost cache: %v", err)
		sentry.CaptureException(err)
	}
	s.observers.notify(record)
}

// HasError reports whether billing reads were denied.
func (s *CostService) HasError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache != nil && s.cache.Error == models.CostErrorPermissionDenied
}

// Cached returns the current cache record without fetching.
func (s *CostService) Cached() (models.CostCache, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return models.CostCache{}, false
	}
	return *s.cache, true
}

func (s *CostService) Subscribe(fn func(models.CostCache)) (unsubscribe func()) {
	return s.observers.add(fn)
}
