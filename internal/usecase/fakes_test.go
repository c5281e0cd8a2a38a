package usecase

import (
	"context"
	"fmt"
	"time"

	"TypoTrade/internal/domain/models"
	drepo "TypoTrade/internal/domain/repository"
)

type fakeUniverseSource struct {
	universe *models.Universe
	err      error
}

func (f *fakeUniverseSource) LoadUniverse(context.Context) (*models.Universe, error) {
	return f.universe, f.err
}

type fakeIPOSource struct {
	listings map[string][]drepo.IPOListing // keyed by YYYY-MM
}

func (f *fakeIPOSource) PricedIPOs(_ context.Context, year int, month time.Month) ([]drepo.IPOListing, error) {
	return f.listings[fmt.Sprintf("%04d-%02d", year, month)], nil
}

type fakeBarSource struct {
	daily   map[string][]models.PriceBar
	minute  map[string][]models.PriceBar
	volumes map[string]float64
}

func (f *fakeBarSource) DailyBars(_ context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	bars, ok := f.daily[symbol]
	if !ok {
		return nil, fmt.Errorf("no daily bars for %s", symbol)
	}
	return clipBars(bars, from, to), nil
}

func (f *fakeBarSource) MinuteBars(_ context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	bars, ok := f.minute[symbol]
	if !ok {
		return nil, fmt.Errorf("no minute bars for %s", symbol)
	}
	return clipBars(bars, from, to), nil
}

func (f *fakeBarSource) AverageVolumes(_ context.Context, symbols []string, _ int) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, s := range symbols {
		if v, ok := f.volumes[s]; ok {
			out[s] = v
		}
	}
	return out, nil
}

func clipBars(bars []models.PriceBar, from, to time.Time) []models.PriceBar {
	var out []models.PriceBar
	for _, b := range bars {
		if b.Timestamp.Before(from) || b.Timestamp.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

type fakeStore struct {
	pairs        []models.CandidatePair
	correlations []models.CorrelationResult
	backtests    []models.BacktestResult
	ipoEvents    []models.IPOEvent
	storeErr     error
}

func (f *fakeStore) Init(context.Context) error { return nil }
func (f *fakeStore) StorePairs(_ context.Context, p []models.CandidatePair) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.pairs = append(f.pairs, p...)
	return nil
}
func (f *fakeStore) StoreCorrelations(_ context.Context, r []models.CorrelationResult) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.correlations = append(f.correlations, r...)
	return nil
}
func (f *fakeStore) StoreBacktests(_ context.Context, r []models.BacktestResult) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.backtests = append(f.backtests, r...)
	return nil
}
func (f *fakeStore) StoreIPOEvents(_ context.Context, e []models.IPOEvent) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.ipoEvents = append(f.ipoEvents, e...)
	return nil
}
func (f *fakeStore) QueryPairs(context.Context, string, bool, int) ([]models.CandidatePair, error) {
	return f.pairs, nil
}
func (f *fakeStore) QueryCorrelations(context.Context, string, string, string, int) ([]models.CorrelationResult, error) {
	return f.correlations, nil
}
func (f *fakeStore) QueryBacktests(context.Context, string, int) ([]models.BacktestResult, error) {
	return f.backtests, nil
}
func (f *fakeStore) QueryIPOEvents(context.Context, float64, int) ([]models.IPOEvent, error) {
	return f.ipoEvents, nil
}
func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close() error                 { return nil }

type fakePublisher struct {
	pairs        []models.CandidatePair
	correlations []models.CorrelationResult
	backtests    []models.BacktestResult
	ipoEvents    []models.IPOEvent
	closed       bool
}

func (f *fakePublisher) PublishPairs(_ context.Context, p []models.CandidatePair) error {
	f.pairs = append(f.pairs, p...)
	return nil
}
func (f *fakePublisher) PublishCorrelations(_ context.Context, r []models.CorrelationResult) error {
	f.correlations = append(f.correlations, r...)
	return nil
}
func (f *fakePublisher) PublishBacktests(_ context.Context, r []models.BacktestResult) error {
	f.backtests = append(f.backtests, r...)
	return nil
}
func (f *fakePublisher) PublishIPOEvents(_ context.Context, e []models.IPOEvent) error {
	f.ipoEvents = append(f.ipoEvents, e...)
	return nil
}
func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeMetrics struct {
	pairsFound int
	anomalies  map[string]int
	written    map[string]int
	errors     map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		anomalies: make(map[string]int),
		written:   make(map[string]int),
		errors:    make(map[string]int),
	}
}

func (f *fakeMetrics) RecordPairsFound(n int)      { f.pairsFound += n }
func (f *fakeMetrics) RecordAnomaly(symbol string) { f.anomalies[symbol]++ }
func (f *fakeMetrics) RecordResultWritten(backend, kind string) {
	f.written[backend+":"+kind]++
}
func (f *fakeMetrics) RecordError(kind string)       { f.errors[kind]++ }
func (f *fakeMetrics) RecordLatency(string, float64) {}

var (
	_ drepo.UniverseSource = (*fakeUniverseSource)(nil)
	_ drepo.IPOSource      = (*fakeIPOSource)(nil)
	_ drepo.BarSource      = (*fakeBarSource)(nil)
	_ drepo.ResultStore    = (*fakeStore)(nil)
	_ drepo.Publisher      = (*fakePublisher)(nil)
	_ drepo.Metrics        = (*fakeMetrics)(nil)
)
