// Package rates produces the per-gram metal prices used for quote
// calculation: layered cache, external fetch, manual override, static
// fallback.
package rates

import (
	"context"
	"sync"
	"time"

	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/metrics"
	"github.com/jeweledassist/backend/internal/observability"
)

// CacheTTL bounds how long a snapshot is served without an external call.
const CacheTTL = 60 * time.Second

// Safe constants used when there is no fetch result and no previous
// snapshot to fall back to.
const (
	FallbackGold     = 7000
	FallbackSilver   = 90
	FallbackPlatinum = 3500
)

// Service owns the shared rate snapshot. Refresh is last-write-wins; a
// benign race at worst costs one redundant fetch.
type Service struct {
	mu       sync.Mutex
	fetcher  Fetcher
	settings domain.SettingsStore
	recorder *metrics.Recorder
	now      func() time.Time
	ttl      time.Duration
	cached   *domain.RateSnapshot
}

// NewService wires a fetcher and the settings store holding manual
// overrides. recorder may be nil.
func NewService(fetcher Fetcher, settings domain.SettingsStore, recorder *metrics.Recorder) *Service {
	return &Service{
		fetcher:  fetcher,
		settings: settings,
		recorder: recorder,
		now:      time.Now,
		ttl:      CacheTTL,
	}
}

// WithClock replaces the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetRates returns the current snapshot. Within cache validity no external
// call is made. On fetch failure the previous snapshot is served, else the
// hardcoded constants; the source tag reflects the path taken.
//
// The fetch runs outside the mutex: a slow rate source must not convoy
// concurrent turns behind one refresh. Concurrent misses each fetch and the
// last write wins, at worst a redundant external call.
func (s *Service) GetRates(ctx context.Context) domain.RateSnapshot {
	now := s.now()

	s.mu.Lock()
	if s.cached != nil && now.Sub(s.cached.FetchedAt) < s.ttl {
		snap := *s.cached
		s.mu.Unlock()
		return snap
	}
	stale := s.cached
	s.mu.Unlock()

	log := observability.LoggerFromContext(ctx)

	snap, err := s.fetcher.Fetch(ctx)
	if err != nil {
		log.Warn("rate fetch failed", "error", err)
		s.recorder.RateFetch(string(domain.RateFallback))

		// Another caller may have refreshed the cache meanwhile.
		s.mu.Lock()
		if s.cached != nil && s.now().Sub(s.cached.FetchedAt) < s.ttl {
			fresh := *s.cached
			s.mu.Unlock()
			return fresh
		}
		s.mu.Unlock()

		if stale != nil {
			cp := *stale
			cp.Source = domain.RateFallback
			return cp
		}
		return domain.RateSnapshot{
			GoldPerGram:     FallbackGold,
			SilverPerGram:   FallbackSilver,
			PlatinumPerGram: FallbackPlatinum,
			Source:          domain.RateFallback,
			FetchedAt:       now,
		}
	}

	// A source may only know gold; pad the rest with the constants so a
	// quote never multiplies by zero.
	if snap.SilverPerGram <= 0 {
		snap.SilverPerGram = FallbackSilver
	}
	if snap.PlatinumPerGram <= 0 {
		snap.PlatinumPerGram = FallbackPlatinum
	}
	snap.Source = domain.RateLive
	snap.FetchedAt = now

	s.applyManualOverride(ctx, &snap)
	s.recorder.RateFetch(string(snap.Source))

	s.mu.Lock()
	s.cached = &snap
	s.mu.Unlock()
	return snap
}

// applyManualOverride replaces fetched values with operator-configured
// rates greater than zero. A settings read failure keeps the fetched
// values: the automated flow must not hang on a storage hiccup.
func (s *Service) applyManualOverride(ctx context.Context, snap *domain.RateSnapshot) {
	if s.settings == nil {
		return
	}
	cfg, err := s.settings.GetSettings(ctx)
	if err != nil || cfg == nil {
		if err != nil {
			observability.LoggerFromContext(ctx).Warn("settings read failed, skipping manual rates", "error", err)
		}
		return
	}

	manual := cfg.ManualRates
	if manual.Gold > 0 {
		snap.GoldPerGram = manual.Gold
		snap.Source = domain.RateManual
	}
	if manual.Silver > 0 {
		snap.SilverPerGram = manual.Silver
		snap.Source = domain.RateManual
	}
	if manual.Platinum > 0 {
		snap.PlatinumPerGram = manual.Platinum
		snap.Source = domain.RateManual
	}
}

// Invalidate drops the cached snapshot so the next read refetches. Called
// after an operator changes manual rates.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}
