package usecase

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"TypoTrade/internal/domain/models"
	drepo "TypoTrade/internal/domain/repository"
	"TypoTrade/internal/services/analytics"
)

func newIPOStudy(t *testing.T, universe *models.Universe, ipos *fakeIPOSource, bars *fakeBarSource, store *fakeStore, m *fakeMetrics) *IPOStudy {
	t.Helper()
	simulator, err := analytics.NewBacktestSimulator(0.5)
	if err != nil {
		t.Fatalf("NewBacktestSimulator: %v", err)
	}
	sink := NewResultSink(&fakePublisher{}, store, m, "clickhouse")
	study, err := NewIPOStudy(&fakeUniverseSource{universe: universe}, ipos, bars, sink, m, simulator, 1, 3.0)
	if err != nil {
		t.Fatalf("NewIPOStudy: %v", err)
	}
	return study
}

func TestRollToTradingDay(t *testing.T) {
	sat := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)
	mon := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)

	if got := rollToTradingDay(sat); !got.Equal(mon) {
		t.Fatalf("saturday rolled to %v, want monday", got)
	}
	if got := rollToTradingDay(sun); !got.Equal(mon) {
		t.Fatalf("sunday rolled to %v, want monday", got)
	}
	if got := rollToTradingDay(mon); !got.Equal(mon) {
		t.Fatalf("monday must not roll, got %v", got)
	}
}

func TestIPOStudyRun(t *testing.T) {
	// GOOD prices on Thursday 2024-03-21; HOOD differs by one adjacent
	// key (G/H) so it is a fat-finger candidate.
	priced := time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)

	universe := models.NewUniverse([]models.Ticker{
		{Symbol: "HOOD", Name: "Robinhood Markets, Inc.", Exchange: "NASDAQ"},
		{Symbol: "AAPL", Name: "Apple Inc. Common Stock", Exchange: "NASDAQ"},
	})

	// Ten flat sessions before the debut, then the event day.
	var bars []models.PriceBar
	for i := 10; i >= 1; i-- {
		day := priced.AddDate(0, 0, -i)
		bars = append(bars, models.PriceBar{
			Timestamp: day,
			Open:      9.5, High: 9.6, Low: 9.4, Close: 9.5,
			Volume: 1000,
		})
	}
	bars = append(bars, models.PriceBar{
		Timestamp: priced,
		Open:      10, High: 12, Low: 9.8, Close: 10.5,
		Volume: 5000,
	})

	src := &fakeBarSource{daily: map[string][]models.PriceBar{"HOOD": bars}}
	ipos := &fakeIPOSource{listings: map[string][]drepo.IPOListing{
		"2024-03": {{Symbol: "GOOD", Name: "Good Holdings", Priced: priced}},
	}}
	store := &fakeStore{}
	m := newFakeMetrics()
	study := newIPOStudy(t, universe, ipos, src, store, m)

	summary, events, err := study.Run(context.Background(), priced, priced)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Mode != "ipo" {
		t.Fatalf("mode = %s", summary.Mode)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}

	e := events[0]
	if e.Pair.Target.Symbol != "GOOD" || e.Pair.Candidate.Symbol != "HOOD" {
		t.Fatalf("pair = %s", e.Pair.Key())
	}
	if !e.Pair.KeyboardProximate {
		t.Fatalf("G and H are adjacent keys")
	}
	if math.Abs(e.VolumeSpikeRatio-5) > 1e-9 {
		t.Fatalf("spike ratio = %v, want 5", e.VolumeSpikeRatio)
	}
	wantGap := (10.0 - 9.5) / 9.5 * 100
	if math.Abs(e.GapUpPct-wantGap) > 1e-9 {
		t.Fatalf("gap up = %v, want %v", e.GapUpPct, wantGap)
	}
	wantHigh := (12.0 - 10.0) / 10.0 * 100
	if math.Abs(e.IntradayHighPct-wantHigh) > 1e-9 {
		t.Fatalf("intraday high = %v, want %v", e.IntradayHighPct, wantHigh)
	}
	if e.ReversionFromHigh >= 0 {
		t.Fatalf("close below high must revert negative, got %v", e.ReversionFromHigh)
	}
	if m.anomalies["HOOD"] != 1 {
		t.Fatalf("anomaly metrics = %v (5x spike should count)", m.anomalies)
	}
	if len(store.ipoEvents) != 1 {
		t.Fatalf("store got %d events", len(store.ipoEvents))
	}

	// A 5x spike clears the 3x ratio rule, so the event is backtested
	// with the high-capture exit on the debut-day bar.
	if len(store.backtests) != 1 {
		t.Fatalf("store got %d backtests, want 1 for the qualifying event", len(store.backtests))
	}
	bt := store.backtests[0]
	if bt.ExitPolicy != analytics.ExitHighCapture {
		t.Fatalf("exit policy = %s", bt.ExitPolicy)
	}
	// entry 10, high 12, half the move captured: exit 11, raw 10%.
	if math.Abs(bt.RawReturn-0.10) > 1e-9 {
		t.Fatalf("raw return = %v, want 0.10", bt.RawReturn)
	}
	if bt.HedgeRatio != 0 || bt.LookaheadHedge {
		t.Fatalf("debut-day trade must be hedgeless and not lookahead: %+v", bt)
	}
	if bt.AlphaBps != 0 {
		t.Fatalf("alpha must be defined and zero with no hedge, got %v", bt.AlphaBps)
	}
	if summary.ResultsProduced != 2 {
		t.Fatalf("results = %d, want event + backtest", summary.ResultsProduced)
	}
}

func TestIPOStudyBelowRatioThresholdNotBacktested(t *testing.T) {
	priced := time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)
	universe := models.NewUniverse([]models.Ticker{
		{Symbol: "HOOD", Name: "Robinhood Markets, Inc.", Exchange: "NASDAQ"},
	})

	var bars []models.PriceBar
	for i := 10; i >= 1; i-- {
		bars = append(bars, models.PriceBar{
			Timestamp: priced.AddDate(0, 0, -i),
			Open:      9.5, High: 9.6, Low: 9.4, Close: 9.5,
			Volume: 1000,
		})
	}
	// 2.5x the baseline: elevated, but under the 3x rule.
	bars = append(bars, models.PriceBar{
		Timestamp: priced,
		Open:      10, High: 12, Low: 9.8, Close: 10.5,
		Volume: 2500,
	})

	src := &fakeBarSource{daily: map[string][]models.PriceBar{"HOOD": bars}}
	ipos := &fakeIPOSource{listings: map[string][]drepo.IPOListing{
		"2024-03": {{Symbol: "GOOD", Name: "Good Holdings", Priced: priced}},
	}}
	store := &fakeStore{}
	m := newFakeMetrics()
	study := newIPOStudy(t, universe, ipos, src, store, m)

	summary, events, err := study.Run(context.Background(), priced, priced)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want the event recorded regardless", len(events))
	}
	if len(store.backtests) != 0 {
		t.Fatalf("sub-threshold event must not be backtested, got %d", len(store.backtests))
	}
	if m.anomalies["HOOD"] != 0 {
		t.Fatalf("sub-threshold spike must not count as anomaly: %v", m.anomalies)
	}
	if summary.ResultsProduced != 1 {
		t.Fatalf("results = %d, want event only", summary.ResultsProduced)
	}
}

func TestIPOStudySkipsShortAndDistantSymbols(t *testing.T) {
	universe := models.NewUniverse([]models.Ticker{
		{Symbol: "HOOD", Name: "Robinhood Markets, Inc."},
		{Symbol: "MSFT", Name: "Microsoft Corporation"},
	})
	priced := time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)
	ipos := &fakeIPOSource{listings: map[string][]drepo.IPOListing{
		"2024-03": {
			{Symbol: "A", Name: "Single Letter Corp", Priced: priced},
			{Symbol: "ZZZZ", Name: "Far Away Inc", Priced: priced},
		},
	}}
	store := &fakeStore{}
	m := newFakeMetrics()
	study := newIPOStudy(t, universe, ipos, &fakeBarSource{}, store, m)

	summary, events, err := study.Run(context.Background(), priced, priced)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) != 0 || summary.PairsProcessed != 0 {
		t.Fatalf("expected no candidates, got %d events %d pairs", len(events), summary.PairsProcessed)
	}
}

func TestIPOStudyMonthIteration(t *testing.T) {
	// Two listings in consecutive months; neither has bar data, so both
	// land in the insufficient-sample bucket rather than erroring out.
	universe := models.NewUniverse([]models.Ticker{
		{Symbol: "HOOD", Name: "Robinhood Markets, Inc."},
	})
	ipos := &fakeIPOSource{listings: map[string][]drepo.IPOListing{}}
	for i, month := range []time.Month{time.March, time.April} {
		priced := time.Date(2024, month, 5, 0, 0, 0, 0, time.UTC)
		key := fmt.Sprintf("2024-%02d", month)
		ipos.listings[key] = []drepo.IPOListing{
			{Symbol: fmt.Sprintf("GOOD%d", i)[:4], Name: "Good Holdings", Priced: priced},
		}
	}
	store := &fakeStore{}
	m := newFakeMetrics()
	study := newIPOStudy(t, universe, ipos, &fakeBarSource{}, store, m)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	summary, _, err := study.Run(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.PairsProcessed != 2 {
		t.Fatalf("pairs processed = %d, want 2 across both months", summary.PairsProcessed)
	}
	if summary.InsufficientSample != 2 {
		t.Fatalf("insufficient = %d, want 2 (no bar data)", summary.InsufficientSample)
	}
}
