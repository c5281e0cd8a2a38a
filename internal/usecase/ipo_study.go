package usecase

import (
	"context"
	"fmt"
	"time"

	"TypoTrade/internal/domain/models"
	drepo "TypoTrade/internal/domain/repository"
	"TypoTrade/internal/services/analytics"
	"TypoTrade/internal/services/matching"
	applogger "TypoTrade/pkg/logger"
)

// IPOStudy walks the priced-IPO calendar and records how keyboard-adjacent
// look-alike tickers traded on each debut day. Only fat-finger plausible
// candidates qualify: same length, one substituted character, adjacent
// keys. Events whose debut-day volume clears the ratio rule are run
// through the backtest simulator with the high-capture exit.
type IPOStudy struct {
	universe  drepo.UniverseSource
	ipos      drepo.IPOSource
	bars      drepo.BarSource
	sink      *ResultSink
	metrics   drepo.Metrics
	detector  *analytics.AnomalyDetector
	simulator *analytics.BacktestSimulator
	l         *applogger.Logger

	distanceThreshold int
	volumeDays        int
}

// NewIPOStudy creates an IPO event study runner. The ratio threshold is
// the volume multiple over the pre-debut baseline an event must clear to
// be backtested; the detector's baseline is the same window the event
// statistics use.
func NewIPOStudy(
	universe drepo.UniverseSource,
	ipos drepo.IPOSource,
	bars drepo.BarSource,
	sink *ResultSink,
	metrics drepo.Metrics,
	simulator *analytics.BacktestSimulator,
	distanceThreshold int,
	ratioThreshold float64,
) (*IPOStudy, error) {
	if distanceThreshold <= 0 {
		distanceThreshold = 1
	}
	if ratioThreshold <= 1 {
		ratioThreshold = 3.0
	}
	const volumeDays = 5
	detector, err := analytics.NewAnomalyDetector(volumeDays, 1, ratioThreshold)
	if err != nil {
		return nil, fmt.Errorf("ratio detector: %w", err)
	}
	return &IPOStudy{
		universe:          universe,
		ipos:              ipos,
		bars:              bars,
		sink:              sink,
		metrics:           metrics,
		detector:          detector,
		simulator:         simulator,
		distanceThreshold: distanceThreshold,
		volumeDays:        volumeDays,
	}, nil
}

// SetLogger injects a structured logger.
func (s *IPOStudy) SetLogger(l *applogger.Logger) { s.l = l }

// Run studies every month in [from, to] inclusive and sinks the events.
func (s *IPOStudy) Run(ctx context.Context, from, to time.Time) (models.RunSummary, []models.IPOEvent, error) {
	summary := models.RunSummary{Mode: "ipo"}

	universe, err := s.universe.LoadUniverse(ctx)
	if err != nil {
		s.metrics.RecordError("load_universe")
		return summary, nil, fmt.Errorf("load universe: %w", err)
	}

	var events []models.IPOEvent
	var backtests []models.BacktestResult
	for month := monthStart(from); !month.After(monthStart(to)); month = month.AddDate(0, 1, 0) {
		if err := ctx.Err(); err != nil {
			return summary, events, err
		}

		listings, err := s.ipos.PricedIPOs(ctx, month.Year(), month.Month())
		if err != nil {
			summary.Failed++
			s.metrics.RecordError("ipo_calendar")
			if s.l != nil {
				s.l.Warn("ipo calendar fetch failed",
					applogger.String("month", month.Format("2006-01")),
					applogger.Error(err),
				)
			}
			continue
		}

		for _, listing := range listings {
			pairs := s.findCandidates(listing, universe)
			if len(pairs) == 0 {
				continue
			}
			summary.PairsProcessed += len(pairs)

			for _, pair := range pairs {
				event, bt, err := s.studyEvent(ctx, pair, listing.Priced)
				if err != nil {
					summary.InsufficientSample++
					if s.l != nil {
						s.l.Debug("ipo event skipped",
							applogger.String("pair", pair.Key()),
							applogger.Error(err),
						)
					}
					continue
				}
				events = append(events, event)
				if bt != nil {
					backtests = append(backtests, *bt)
				}
			}
		}
	}
	summary.ResultsProduced = len(events) + len(backtests)

	if err := s.sink.SinkIPOEvents(ctx, events); err != nil {
		return summary, events, err
	}
	if err := s.sink.SinkBacktests(ctx, backtests); err != nil {
		return summary, events, err
	}
	return summary, events, nil
}

// findCandidates matches one IPO symbol against the listed universe.
// Single-character symbols are ignored; everything at one substituted
// adjacent key is a candidate.
func (s *IPOStudy) findCandidates(listing drepo.IPOListing, universe *models.Universe) []models.CandidatePair {
	if len(listing.Symbol) < 2 {
		return nil
	}

	var out []models.CandidatePair
	for _, t := range universe.Tickers() {
		if t.Symbol == listing.Symbol {
			continue
		}
		d := matching.Distance(listing.Symbol, t.Symbol)
		if d > s.distanceThreshold {
			continue
		}
		if !matching.ClassifyProximate(listing.Symbol, t.Symbol) {
			continue
		}
		out = append(out, models.CandidatePair{
			Target:            models.Ticker{Symbol: listing.Symbol, Name: listing.Name},
			Candidate:         t,
			Distance:          d,
			KeyboardProximate: true,
		})
	}
	return out
}

// studyEvent measures the candidate's tape on the IPO's first trading day.
// When the debut-day volume clears the ratio rule over the pre-debut
// baseline, the event also produces one hedgeless high-capture backtest.
func (s *IPOStudy) studyEvent(ctx context.Context, pair models.CandidatePair, priced time.Time) (models.IPOEvent, *models.BacktestResult, error) {
	tradingDate := rollToTradingDay(priced)

	from := tradingDate.AddDate(0, 0, -(s.volumeDays*2 + 5))
	to := tradingDate.AddDate(0, 0, 1)
	bars, err := s.bars.DailyBars(ctx, pair.Candidate.Symbol, from, to)
	if err != nil {
		return models.IPOEvent{}, nil, fmt.Errorf("daily bars %s: %w", pair.Candidate.Symbol, err)
	}

	dayIdx := -1
	for i, b := range bars {
		if sameDay(b.Timestamp, tradingDate) {
			dayIdx = i
			break
		}
	}
	if dayIdx < 1 {
		return models.IPOEvent{}, nil, fmt.Errorf("no session for %s on %s", pair.Candidate.Symbol, tradingDate.Format("2006-01-02"))
	}

	prior := bars[:dayIdx]
	if len(prior) > s.volumeDays {
		prior = prior[len(prior)-s.volumeDays:]
	}
	var avgVol float64
	for _, b := range prior {
		avgVol += b.Volume
	}
	avgVol /= float64(len(prior))

	day := bars[dayIdx]
	prevClose := bars[dayIdx-1].Close
	if prevClose == 0 || day.Open == 0 || day.High == 0 || avgVol == 0 {
		return models.IPOEvent{}, nil, fmt.Errorf("degenerate session for %s", pair.Candidate.Symbol)
	}

	event := models.IPOEvent{
		Pair:              pair,
		IPODate:           priced,
		TradingDate:       tradingDate,
		CandidateOpen:     day.Open,
		CandidateHigh:     day.High,
		CandidateClose:    day.Close,
		CandidateVolume:   day.Volume,
		AvgVolume5d:       avgVol,
		VolumeSpikeRatio:  day.Volume / avgVol,
		GapUpPct:          (day.Open - prevClose) / prevClose * 100,
		IntradayHighPct:   (day.High - day.Open) / day.Open * 100,
		ReversionFromHigh: (day.Close - day.High) / day.High * 100,
		DayReturn:         (day.Close - prevClose) / prevClose * 100,
	}

	if !s.qualifies(pair.Candidate.Symbol, prior, day) {
		return event, nil, nil
	}
	s.metrics.RecordAnomaly(pair.Candidate.Symbol)

	// One-day event window. No candidate hedge exists on a debut day, so
	// the short leg is sized at zero and the flag stays off.
	window := []models.PriceBar{day}
	res, err := s.simulator.Simulate(analytics.Simulation{
		Pair:      pair,
		Target:    window,
		Candidate: window,
		Policy:    analytics.ExitHighCapture,
	})
	if err != nil {
		s.metrics.RecordError("simulate")
		if s.l != nil {
			s.l.Warn("ipo backtest failed",
				applogger.String("pair", pair.Key()),
				applogger.Error(err),
			)
		}
		return event, nil, nil
	}
	return event, &res, nil
}

// qualifies applies the ratio anomaly rule to the debut day: volume over
// the full pre-debut baseline. Events without a complete baseline never
// qualify.
func (s *IPOStudy) qualifies(symbol string, prior []models.PriceBar, day models.PriceBar) bool {
	if len(prior) < s.volumeDays {
		return false
	}
	window := append(append([]models.PriceBar{}, prior...), day)
	anomalies, err := s.detector.DetectRatio(symbol, window)
	if err != nil {
		return false
	}
	for _, a := range anomalies {
		if a.Anomalous && a.Timestamp.Equal(day.Timestamp) {
			return true
		}
	}
	return false
}

// rollToTradingDay moves weekend pricing dates forward to the Monday
// session.
func rollToTradingDay(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

func monthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
