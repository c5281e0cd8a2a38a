package repository

import (
	"context"
	"errors"
	"time"

	"TypoTrade/internal/domain/models"
	domrepo "TypoTrade/internal/domain/repository"
	"TypoTrade/pkg/cache"
	applogger "TypoTrade/pkg/logger"
)

// CachedBarSource wraps a BarSource with a read-through cache. Historical
// bars are immutable once a session closes, so cached windows only expire
// to bound memory, not for freshness.
type CachedBarSource struct {
	inner domrepo.BarSource
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedBarSource(inner domrepo.BarSource, c cache.Service, ttl time.Duration) *CachedBarSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedBarSource{inner: inner, cache: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (s *CachedBarSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CachedBarSource) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	return s.bars(ctx, "bars:"+string(domrepo.TF1d), symbol, from, to, s.inner.DailyBars)
}

func (s *CachedBarSource) MinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	return s.bars(ctx, "bars:"+string(domrepo.TF1m), symbol, from, to, s.inner.MinuteBars)
}

// AverageVolumes is not cached: it feeds target selection once per run.
func (s *CachedBarSource) AverageVolumes(ctx context.Context, symbols []string, days int) (map[string]float64, error) {
	return s.inner.AverageVolumes(ctx, symbols, days)
}

func (s *CachedBarSource) bars(ctx context.Context, prefix, symbol string, from, to time.Time,
	fetch func(context.Context, string, time.Time, time.Time) ([]models.PriceBar, error)) ([]models.PriceBar, error) {

	key := cache.GenerateKeyWithParams(prefix, symbol, from.Unix(), to.Unix())

	var cached []models.PriceBar
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) && s.l != nil {
		s.l.Warn("bar cache read failed",
			applogger.String("key", key),
			applogger.Error(err),
		)
	}

	bars, err := fetch(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, bars, s.ttl); err != nil && s.l != nil {
		s.l.Warn("bar cache write failed",
			applogger.String("key", key),
			applogger.Error(err),
		)
	}
	return bars, nil
}

var _ domrepo.BarSource = (*CachedBarSource)(nil)
