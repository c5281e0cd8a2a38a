package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"TypoTrade/internal/domain/models"
	drepo "TypoTrade/internal/domain/repository"
	"TypoTrade/internal/services/analytics"
	applogger "TypoTrade/pkg/logger"
)

// PairStudy runs the correlation and backtest battery over candidate
// pairs: a daily-bar study for baseline and high-volume correlations, and
// an intraday deep dive with time-of-day buckets and hedged simulations.
type PairStudy struct {
	bars      drepo.BarSource
	detector  *analytics.AnomalyDetector
	engine    *analytics.CorrelationEngine
	simulator *analytics.BacktestSimulator
	sink      *ResultSink
	metrics   drepo.Metrics
	l         *applogger.Logger

	lookbackDays         int
	intradayLookbackDays int
	loc                  *time.Location
}

// NewPairStudy creates a study runner. Sessions are bucketed in exchange
// local time regardless of the feed's timezone.
func NewPairStudy(
	bars drepo.BarSource,
	detector *analytics.AnomalyDetector,
	engine *analytics.CorrelationEngine,
	simulator *analytics.BacktestSimulator,
	sink *ResultSink,
	metrics drepo.Metrics,
	lookbackDays, intradayLookbackDays int,
) (*PairStudy, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("load exchange timezone: %w", err)
	}
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	if intradayLookbackDays <= 0 {
		intradayLookbackDays = 7
	}
	return &PairStudy{
		bars:                 bars,
		detector:             detector,
		engine:               engine,
		simulator:            simulator,
		sink:                 sink,
		metrics:              metrics,
		lookbackDays:         lookbackDays,
		intradayLookbackDays: intradayLookbackDays,
		loc:                  loc,
	}, nil
}

// SetLogger injects a structured logger.
func (s *PairStudy) SetLogger(l *applogger.Logger) { s.l = l }

// Run executes the daily-bar study for every kept pair: a baseline
// correlation over the full lookback and a high-volume correlation
// restricted to the target's volume-anomaly days. Excluded pairs are
// skipped. All results, defined or not, are delivered to the sink.
func (s *PairStudy) Run(ctx context.Context, pairs []models.CandidatePair) (models.RunSummary, error) {
	summary := models.RunSummary{Mode: "study"}
	now := time.Now()
	from := now.AddDate(0, 0, -s.lookbackDays)

	var results []models.CorrelationResult
	for _, pair := range pairs {
		if pair.Excluded {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.PairsProcessed++

		pairResults, err := s.studyPair(ctx, pair, from, now)
		if err != nil {
			summary.Failed++
			s.metrics.RecordError("study_pair")
			if s.l != nil {
				s.l.Warn("pair study failed",
					applogger.String("pair", pair.Key()),
					applogger.Error(err),
				)
			}
			continue
		}
		for _, r := range pairResults {
			if !r.Defined() {
				summary.InsufficientSample++
			}
		}
		results = append(results, pairResults...)
	}
	summary.ResultsProduced = len(results)

	if err := s.sink.SinkCorrelations(ctx, results); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *PairStudy) studyPair(ctx context.Context, pair models.CandidatePair, from, to time.Time) ([]models.CorrelationResult, error) {
	target, candidate := pair.Target.Symbol, pair.Candidate.Symbol

	tBars, err := s.bars.DailyBars(ctx, target, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", target, err)
	}
	cBars, err := s.bars.DailyBars(ctx, candidate, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", candidate, err)
	}

	tRet, err := analytics.ComputeReturns(tBars)
	if err != nil {
		return nil, fmt.Errorf("returns %s: %w", target, err)
	}
	cRet, err := analytics.ComputeReturns(cBars)
	if err != nil {
		return nil, fmt.Errorf("returns %s: %w", candidate, err)
	}

	baseline := s.engine.Correlate(target, candidate, tRet, cRet, models.ScopeBaseline, nil)

	events, err := s.detector.Detect(target, tBars)
	if err != nil {
		return nil, fmt.Errorf("anomalies %s: %w", target, err)
	}
	for _, e := range events {
		if e.Anomalous {
			s.metrics.RecordAnomaly(e.Symbol)
		}
	}
	highVol := s.engine.Correlate(target, candidate, tRet, cRet, models.ScopeHighVolume, analytics.AnomalyMask(events))

	return []models.CorrelationResult{baseline, highVol}, nil
}

// DeepDive runs the intraday battery for one pair: a buying-pressure
// correlation, per-bucket correlations with a best-time pick, and one
// hedged simulation per session sized by the best-time correlation. The
// hedge is known only in hindsight, so every simulation carries the
// lookahead flag.
func (s *PairStudy) DeepDive(ctx context.Context, pair models.CandidatePair) ([]models.CorrelationResult, []models.BacktestResult, error) {
	target, candidate := pair.Target.Symbol, pair.Candidate.Symbol
	now := time.Now()
	from := now.AddDate(0, 0, -s.intradayLookbackDays)

	tBars, err := s.bars.MinuteBars(ctx, target, from, now)
	if err != nil {
		return nil, nil, fmt.Errorf("minute bars %s: %w", target, err)
	}
	cBars, err := s.bars.MinuteBars(ctx, candidate, from, now)
	if err != nil {
		return nil, nil, fmt.Errorf("minute bars %s: %w", candidate, err)
	}
	tBars = s.localize(tBars)
	cBars = s.localize(cBars)

	tRet, err := analytics.ComputeReturns(tBars)
	if err != nil {
		return nil, nil, fmt.Errorf("returns %s: %w", target, err)
	}
	cRet, err := analytics.ComputeReturns(cBars)
	if err != nil {
		return nil, nil, fmt.Errorf("returns %s: %w", candidate, err)
	}

	results := []models.CorrelationResult{
		s.engine.Correlate(target, candidate, tRet, cRet, models.ScopeBuying, analytics.BuyingPressure),
	}
	buckets := s.engine.CorrelateBuckets(target, candidate, tRet, cRet, nil)
	results = append(results, buckets...)

	// The hedge is sized from the buying-pressure bucket series, not the
	// all-data one: the thesis only holds when the target is being bought.
	buyBuckets := s.engine.CorrelateBuckets(target, candidate, tRet, cRet, analytics.BuyingPressure)
	hedge := bestTimeHedge(buyBuckets)
	for i := range buyBuckets {
		switch buyBuckets[i].Scope {
		case models.ScopeTimeBucket:
			buyBuckets[i].Scope = models.ScopeTimeBucketBuy
		case models.ScopeBestTime:
			buyBuckets[i].Scope = models.ScopeBestTimeBuy
		}
	}
	results = append(results, buyBuckets...)
	backtests := s.simulateSessions(pair, tBars, cBars, hedge)

	return results, backtests, nil
}

// RunDeepDives executes DeepDive over all kept pairs and sinks the output.
func (s *PairStudy) RunDeepDives(ctx context.Context, pairs []models.CandidatePair) (models.RunSummary, error) {
	summary := models.RunSummary{Mode: "pair"}

	var correlations []models.CorrelationResult
	var backtests []models.BacktestResult
	for _, pair := range pairs {
		if pair.Excluded {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.PairsProcessed++

		corrs, tests, err := s.DeepDive(ctx, pair)
		if err != nil {
			summary.Failed++
			s.metrics.RecordError("deep_dive")
			if s.l != nil {
				s.l.Warn("deep dive failed",
					applogger.String("pair", pair.Key()),
					applogger.Error(err),
				)
			}
			continue
		}
		for _, r := range corrs {
			if !r.Defined() {
				summary.InsufficientSample++
			}
		}
		correlations = append(correlations, corrs...)
		backtests = append(backtests, tests...)
	}
	summary.ResultsProduced = len(correlations) + len(backtests)

	if err := s.sink.SinkCorrelations(ctx, correlations); err != nil {
		return summary, err
	}
	if err := s.sink.SinkBacktests(ctx, backtests); err != nil {
		return summary, err
	}
	return summary, nil
}

// simulateSessions runs one hedged trade per trading day present in the
// minute window. Sessions where the two series do not line up bar for bar
// are skipped rather than patched.
func (s *PairStudy) simulateSessions(pair models.CandidatePair, tBars, cBars []models.PriceBar, hedge float64) []models.BacktestResult {
	tSessions := splitSessions(tBars)
	cSessions := splitSessions(cBars)

	days := make([]string, 0, len(tSessions))
	for day := range tSessions {
		days = append(days, day)
	}
	sort.Strings(days)

	var out []models.BacktestResult
	for _, day := range days {
		tw := tSessions[day]
		cw, ok := cSessions[day]
		if !ok || len(cw) != len(tw) {
			continue
		}
		res, err := s.simulator.Simulate(analytics.Simulation{
			Pair:           pair,
			Target:         tw,
			Candidate:      cw,
			HedgeRatio:     hedge,
			Policy:         analytics.ExitHighCapture,
			LookaheadHedge: true,
		})
		if err != nil {
			s.metrics.RecordError("simulate")
			continue
		}
		out = append(out, res)
	}
	return out
}

func (s *PairStudy) localize(bars []models.PriceBar) []models.PriceBar {
	out := make([]models.PriceBar, len(bars))
	for i, b := range bars {
		b.Timestamp = b.Timestamp.In(s.loc)
		out[i] = b
	}
	return out
}

// bestTimeHedge sizes the hedge from the best-time bucket correlation.
// With no defined bucket the simulation runs unhedged.
func bestTimeHedge(buckets []models.CorrelationResult) float64 {
	for _, r := range buckets {
		if r.Scope == models.ScopeBestTime && r.Defined() {
			return math.Abs(*r.Correlation)
		}
	}
	return 0
}

// splitSessions partitions minute bars by local calendar day, preserving
// intra-day order.
func splitSessions(bars []models.PriceBar) map[string][]models.PriceBar {
	out := make(map[string][]models.PriceBar)
	for _, b := range bars {
		day := b.Timestamp.Format("2006-01-02")
		out[day] = append(out[day], b)
	}
	return out
}
