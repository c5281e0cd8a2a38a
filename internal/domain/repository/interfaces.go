package repository

import (
	"context"
	"time"

	"TypoTrade/internal/domain/models"
)

// UniverseSource loads the full ticker universe snapshot.
type UniverseSource interface {
	LoadUniverse(ctx context.Context) (*models.Universe, error)
}

// IPOListing is one priced IPO from the calendar.
type IPOListing struct {
	Symbol string
	Name   string
	Priced time.Time
}

// IPOSource lists priced IPOs for a month.
type IPOSource interface {
	PricedIPOs(ctx context.Context, year int, month time.Month) ([]IPOListing, error)
}

// BarSource provides aligned OHLCV history per ticker.
type BarSource interface {
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)
	MinuteBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)
	// AverageVolumes returns the mean daily volume over the last `days`
	// sessions for each symbol. Symbols without data are omitted.
	AverageVolumes(ctx context.Context, symbols []string, days int) (map[string]float64, error)
}

// ResultStore persists and serves study output.
type ResultStore interface {
	Init(ctx context.Context) error
	StorePairs(ctx context.Context, pairs []models.CandidatePair) error
	StoreCorrelations(ctx context.Context, results []models.CorrelationResult) error
	StoreBacktests(ctx context.Context, results []models.BacktestResult) error
	StoreIPOEvents(ctx context.Context, events []models.IPOEvent) error

	QueryPairs(ctx context.Context, target string, includeExcluded bool, limit int) ([]models.CandidatePair, error)
	QueryCorrelations(ctx context.Context, target, candidate, scope string, limit int) ([]models.CorrelationResult, error)
	QueryBacktests(ctx context.Context, target string, limit int) ([]models.BacktestResult, error)
	QueryIPOEvents(ctx context.Context, minSpikeRatio float64, limit int) ([]models.IPOEvent, error)

	Health(ctx context.Context) error
	Close() error
}

// Publisher emits study output onto a stream for downstream consumers.
type Publisher interface {
	PublishPairs(ctx context.Context, pairs []models.CandidatePair) error
	PublishCorrelations(ctx context.Context, results []models.CorrelationResult) error
	PublishBacktests(ctx context.Context, results []models.BacktestResult) error
	PublishIPOEvents(ctx context.Context, events []models.IPOEvent) error
	Close() error
}

// Metrics records operational counters for a run.
type Metrics interface {
	RecordPairsFound(n int)
	RecordAnomaly(symbol string)
	RecordResultWritten(backend, kind string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
