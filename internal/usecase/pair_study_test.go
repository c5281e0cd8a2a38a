package usecase

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"TypoTrade/internal/domain/models"
	"TypoTrade/internal/services/analytics"
)

var nyLoc = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}()

func dailySeries(start time.Time, closes []float64, volumes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i := range closes {
		bars[i] = models.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      closes[i],
			High:      closes[i] * 1.01,
			Low:       closes[i] * 0.99,
			Close:     closes[i],
			Volume:    volumes[i],
		}
	}
	return bars
}

func newStudy(t *testing.T, bars *fakeBarSource, store *fakeStore, m *fakeMetrics) *PairStudy {
	t.Helper()
	detector, err := analytics.NewAnomalyDetector(5, 2.0, 3.0)
	if err != nil {
		t.Fatalf("NewAnomalyDetector: %v", err)
	}
	engine, err := analytics.NewCorrelationEngine(3, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCorrelationEngine: %v", err)
	}
	simulator, err := analytics.NewBacktestSimulator(0.5)
	if err != nil {
		t.Fatalf("NewBacktestSimulator: %v", err)
	}
	sink := NewResultSink(&fakePublisher{}, store, m, "clickhouse")
	study, err := NewPairStudy(bars, detector, engine, simulator, sink, m, 365, 7)
	if err != nil {
		t.Fatalf("NewPairStudy: %v", err)
	}
	return study
}

func TestPairStudyDailyRun(t *testing.T) {
	start := time.Now().AddDate(0, 0, -40)
	closes := make([]float64, 30)
	price := 100.0
	for i := range closes {
		// Deterministic wiggle so returns carry variance.
		if i%2 == 0 {
			price *= 1.02
		} else {
			price *= 0.99
		}
		closes[i] = price
	}
	volumes := make([]float64, 30)
	for i := range volumes {
		volumes[i] = 1000
	}
	volumes[20] = 20000 // one anomalous session

	bars := &fakeBarSource{daily: map[string][]models.PriceBar{
		"TSLA": dailySeries(start, closes, volumes),
		"TLSA": dailySeries(start, closes, volumes), // identical tape, corr 1
	}}
	store := &fakeStore{}
	m := newFakeMetrics()
	study := newStudy(t, bars, store, m)

	pairs := []models.CandidatePair{
		{Target: models.Ticker{Symbol: "TSLA"}, Candidate: models.Ticker{Symbol: "TLSA"}, Distance: 1},
		{Target: models.Ticker{Symbol: "TSLA"}, Candidate: models.Ticker{Symbol: "TSLL"}, Distance: 1, Excluded: true},
	}

	summary, err := study.Run(context.Background(), pairs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.PairsProcessed != 1 {
		t.Fatalf("processed = %d, want 1 (excluded pair skipped)", summary.PairsProcessed)
	}
	if summary.ResultsProduced != 2 {
		t.Fatalf("results = %d, want baseline + high_volume", summary.ResultsProduced)
	}

	scopes := make(map[string]models.CorrelationResult)
	for _, r := range store.correlations {
		scopes[r.Scope] = r
	}
	baseline, ok := scopes[models.ScopeBaseline]
	if !ok || !baseline.Defined() {
		t.Fatalf("baseline missing or undefined: %+v", baseline)
	}
	if *baseline.Correlation < 0.999 {
		t.Fatalf("identical tapes should correlate at 1, got %v", *baseline.Correlation)
	}

	// One anomalous day cannot meet the 3-sample floor.
	high, ok := scopes[models.ScopeHighVolume]
	if !ok {
		t.Fatalf("high_volume scope missing")
	}
	if high.Defined() {
		t.Fatalf("high_volume correlation should be undefined on 1 sample, got %v", *high.Correlation)
	}
	if summary.InsufficientSample != 1 {
		t.Fatalf("insufficient sample = %d, want 1", summary.InsufficientSample)
	}
	if m.anomalies["TSLA"] != 1 {
		t.Fatalf("anomaly metrics = %v", m.anomalies)
	}
}

func TestPairStudyDeepDive(t *testing.T) {
	sessionStart := func(daysAgo int) time.Time {
		d := time.Now().In(nyLoc).AddDate(0, 0, -daysAgo)
		return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, nyLoc)
	}
	minuteSession := func(start time.Time, closes ...float64) []models.PriceBar {
		bars := make([]models.PriceBar, len(closes))
		for i, c := range closes {
			bars[i] = models.PriceBar{
				Timestamp: start.Add(time.Duration(i) * time.Minute),
				Open:      c * 0.999,
				High:      c * 1.002,
				Low:       c * 0.997,
				Close:     c,
			}
		}
		return bars
	}

	var tBars, cBars []models.PriceBar
	for _, daysAgo := range []int{3, 2} {
		start := sessionStart(daysAgo)
		tBars = append(tBars, minuteSession(start, 100, 101, 99.5, 100.2)...)
		cBars = append(cBars, minuteSession(start, 50, 50.6, 49.7, 50.1)...)
	}

	bars := &fakeBarSource{minute: map[string][]models.PriceBar{
		"TSLA": tBars,
		"TLSA": cBars,
	}}
	store := &fakeStore{}
	m := newFakeMetrics()
	study := newStudy(t, bars, store, m)

	pair := models.CandidatePair{
		Target:    models.Ticker{Symbol: "TSLA"},
		Candidate: models.Ticker{Symbol: "TLSA"},
		Distance:  1,
	}
	corrs, tests, err := study.DeepDive(context.Background(), pair)
	if err != nil {
		t.Fatalf("DeepDive: %v", err)
	}

	var hasBuying, hasBucket bool
	var buyBest *models.CorrelationResult
	for i, r := range corrs {
		switch r.Scope {
		case models.ScopeBuying:
			hasBuying = true
		case models.ScopeTimeBucket, models.ScopeBestTime:
			hasBucket = true
		case models.ScopeBestTimeBuy:
			buyBest = &corrs[i]
		}
	}
	if !hasBuying {
		t.Fatalf("buying pressure scope missing from %v", corrs)
	}
	if !hasBucket {
		t.Fatalf("time bucket scopes missing from %v", corrs)
	}
	if buyBest == nil || !buyBest.Defined() {
		t.Fatalf("buying-pressure best time bucket missing from %v", corrs)
	}

	if len(tests) != 2 {
		t.Fatalf("backtests = %d, want one per session", len(tests))
	}
	wantHedge := math.Abs(*buyBest.Correlation)
	for _, bt := range tests {
		if !bt.LookaheadHedge {
			t.Fatalf("hindsight hedge must set the lookahead flag: %+v", bt)
		}
		if bt.ExitPolicy != analytics.ExitHighCapture {
			t.Fatalf("exit policy = %s", bt.ExitPolicy)
		}
		if bt.HedgeRatio != wantHedge {
			t.Fatalf("hedge = %v, want buying-pressure best bucket %v", bt.HedgeRatio, wantHedge)
		}
	}
}

// TestPairStudyVolumeSpikePipeline walks one pair through the whole
// battery: a 6x volume spike against a 20-day rolling baseline in the
// daily pass, then an intraday deep dive where the target runs 8% above
// its entry and the high-capture exit takes half the move.
func TestPairStudyVolumeSpikePipeline(t *testing.T) {
	detector, err := analytics.NewAnomalyDetector(20, 2.0, 3.0)
	if err != nil {
		t.Fatalf("NewAnomalyDetector: %v", err)
	}
	engine, err := analytics.NewCorrelationEngine(3, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCorrelationEngine: %v", err)
	}
	simulator, err := analytics.NewBacktestSimulator(0.5)
	if err != nil {
		t.Fatalf("NewBacktestSimulator: %v", err)
	}

	start := time.Now().AddDate(0, 0, -30)
	closes := make([]float64, 25)
	volumes := make([]float64, 25)
	price := 100.0
	for i := range closes {
		if i%2 == 0 {
			price *= 1.02
		} else {
			price *= 0.99
		}
		closes[i] = price
		volumes[i] = 1000
	}
	volumes[22] = 6000 // 6x the flat 20-day mean

	session := func(daysAgo int, scale float64) []models.PriceBar {
		d := time.Now().In(nyLoc).AddDate(0, 0, -daysAgo)
		at := time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, nyLoc)
		ohlc := [][4]float64{
			{100, 100.8, 99.7, 100.5},
			{100.5, 101.9, 100.1, 101.2},
			{101.2, 108, 100.9, 104}, // session high 8% above the 100 entry
			{104, 106, 103, 105},
		}
		bars := make([]models.PriceBar, len(ohlc))
		for i, b := range ohlc {
			bars[i] = models.PriceBar{
				Timestamp: at.Add(time.Duration(i) * time.Minute),
				Open:      b[0] * scale,
				High:      b[1] * scale,
				Low:       b[2] * scale,
				Close:     b[3] * scale,
			}
		}
		return bars
	}
	var tMinute, cMinute []models.PriceBar
	for _, daysAgo := range []int{3, 2} {
		tMinute = append(tMinute, session(daysAgo, 1)...)
		cMinute = append(cMinute, session(daysAgo, 0.5)...)
	}

	bars := &fakeBarSource{
		daily: map[string][]models.PriceBar{
			"TSLA": dailySeries(start, closes, volumes),
			"TLSA": dailySeries(start, closes, volumes),
		},
		minute: map[string][]models.PriceBar{
			"TSLA": tMinute,
			"TLSA": cMinute,
		},
	}
	store := &fakeStore{}
	m := newFakeMetrics()
	sink := NewResultSink(&fakePublisher{}, store, m, "clickhouse")
	study, err := NewPairStudy(bars, detector, engine, simulator, sink, m, 365, 7)
	if err != nil {
		t.Fatalf("NewPairStudy: %v", err)
	}

	pair := models.CandidatePair{
		Target:    models.Ticker{Symbol: "TSLA"},
		Candidate: models.Ticker{Symbol: "TLSA"},
		Distance:  1,
	}
	if _, err := study.Run(context.Background(), []models.CandidatePair{pair}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.anomalies["TSLA"] != 1 {
		t.Fatalf("anomalies = %v, want exactly the spike day", m.anomalies)
	}
	scopes := make(map[string]bool)
	for _, r := range store.correlations {
		scopes[r.Scope] = true
	}
	if !scopes[models.ScopeBaseline] || !scopes[models.ScopeHighVolume] {
		t.Fatalf("daily pass must store baseline and high_volume, got %v", scopes)
	}

	_, tests, err := study.DeepDive(context.Background(), pair)
	if err != nil {
		t.Fatalf("DeepDive: %v", err)
	}
	if len(tests) != 2 {
		t.Fatalf("backtests = %d, want one per session", len(tests))
	}
	for _, bt := range tests {
		if bt.ExitPolicy != analytics.ExitHighCapture {
			t.Fatalf("exit policy = %s", bt.ExitPolicy)
		}
		// entry 100, high 108, half captured: exit 104, raw 4%.
		if math.Abs(bt.ExitPrice-bt.EntryPrice*1.04) > 1e-9 {
			t.Fatalf("exit = %v on entry %v, want half the 8%% move", bt.ExitPrice, bt.EntryPrice)
		}
		if math.Abs(bt.RawReturn-0.04) > 1e-9 {
			t.Fatalf("raw return = %v, want 0.04", bt.RawReturn)
		}
		if math.IsNaN(bt.AlphaBps) {
			t.Fatalf("alpha must be defined, got NaN")
		}
	}
}

// TestPairStudyRerunBitIdentical reruns the full battery over the same
// tape and requires byte-for-byte identical stored output.
func TestPairStudyRerunBitIdentical(t *testing.T) {
	start := time.Now().AddDate(0, 0, -40)
	closes := make([]float64, 30)
	volumes := make([]float64, 30)
	price := 100.0
	for i := range closes {
		if i%3 == 0 {
			price *= 1.03
		} else {
			price *= 0.995
		}
		closes[i] = price
		volumes[i] = 1000
	}
	volumes[15] = 9000
	volumes[21] = 8000
	volumes[26] = 7000

	sessionStart := func(daysAgo int) time.Time {
		d := time.Now().In(nyLoc).AddDate(0, 0, -daysAgo)
		return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, nyLoc)
	}
	minuteSession := func(at time.Time, closes ...float64) []models.PriceBar {
		bars := make([]models.PriceBar, len(closes))
		for i, c := range closes {
			bars[i] = models.PriceBar{
				Timestamp: at.Add(time.Duration(i) * time.Minute),
				Open:      c * 0.999,
				High:      c * 1.002,
				Low:       c * 0.997,
				Close:     c,
			}
		}
		return bars
	}
	var tMinute, cMinute []models.PriceBar
	for _, daysAgo := range []int{3, 2} {
		at := sessionStart(daysAgo)
		tMinute = append(tMinute, minuteSession(at, 100, 101, 99.5, 100.2, 100.9)...)
		cMinute = append(cMinute, minuteSession(at, 50, 50.6, 49.7, 50.1, 50.4)...)
	}

	pairs := []models.CandidatePair{{
		Target:    models.Ticker{Symbol: "TSLA"},
		Candidate: models.Ticker{Symbol: "TLSA"},
		Distance:  1,
	}}

	run := func() *fakeStore {
		bars := &fakeBarSource{
			daily: map[string][]models.PriceBar{
				"TSLA": dailySeries(start, closes, volumes),
				"TLSA": dailySeries(start, closes, volumes),
			},
			minute: map[string][]models.PriceBar{
				"TSLA": tMinute,
				"TLSA": cMinute,
			},
		}
		store := &fakeStore{}
		study := newStudy(t, bars, store, newFakeMetrics())
		if _, err := study.Run(context.Background(), pairs); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if _, err := study.RunDeepDives(context.Background(), pairs); err != nil {
			t.Fatalf("RunDeepDives: %v", err)
		}
		return store
	}

	first, second := run(), run()
	if len(first.correlations) == 0 || len(first.backtests) == 0 {
		t.Fatalf("fixture produced no output: %d correlations %d backtests",
			len(first.correlations), len(first.backtests))
	}
	if !reflect.DeepEqual(first.correlations, second.correlations) {
		t.Fatalf("correlations differ across reruns:\n%+v\n%+v", first.correlations, second.correlations)
	}
	if !reflect.DeepEqual(first.backtests, second.backtests) {
		t.Fatalf("backtests differ across reruns:\n%+v\n%+v", first.backtests, second.backtests)
	}
}
