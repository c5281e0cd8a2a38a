package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"TypoTrade/internal/domain/models"
	drepo "TypoTrade/internal/domain/repository"
	"TypoTrade/internal/services/matching"
	applogger "TypoTrade/pkg/logger"
)

// PairScanner discovers typo-candidate pairs for the most actively traded
// tickers in the universe.
type PairScanner struct {
	universe drepo.UniverseSource
	bars     drepo.BarSource
	matcher  *matching.Matcher
	sink     *ResultSink
	metrics  drepo.Metrics
	l        *applogger.Logger

	targets        []string
	topVolumeCount int
	volumeDays     int
}

// NewPairScanner creates a scanner. When explicit targets are configured
// they replace volume-based selection.
func NewPairScanner(
	universe drepo.UniverseSource,
	bars drepo.BarSource,
	matcher *matching.Matcher,
	sink *ResultSink,
	metrics drepo.Metrics,
	targets []string,
	topVolumeCount int,
) *PairScanner {
	if topVolumeCount <= 0 {
		topVolumeCount = 100
	}
	return &PairScanner{
		universe:       universe,
		bars:           bars,
		matcher:        matcher,
		sink:           sink,
		metrics:        metrics,
		targets:        targets,
		topVolumeCount: topVolumeCount,
		volumeDays:     5,
	}
}

// SetLogger injects a structured logger.
func (s *PairScanner) SetLogger(l *applogger.Logger) { s.l = l }

// Run loads the universe, picks targets, and scans for candidate pairs.
// Discovered pairs are delivered to the sink and returned.
func (s *PairScanner) Run(ctx context.Context) (models.RunSummary, []models.CandidatePair, error) {
	summary := models.RunSummary{Mode: "scan"}
	start := time.Now()

	universe, err := s.universe.LoadUniverse(ctx)
	if err != nil {
		s.metrics.RecordError("load_universe")
		return summary, nil, fmt.Errorf("load universe: %w", err)
	}

	targets, err := s.selectTargets(ctx, universe)
	if err != nil {
		return summary, nil, err
	}
	summary.PairsProcessed = len(targets)

	pairs, err := s.matcher.FindCandidates(ctx, universe, targets)
	if err != nil {
		s.metrics.RecordError("scan")
		return summary, nil, fmt.Errorf("scan candidates: %w", err)
	}
	summary.ResultsProduced = len(pairs)
	s.metrics.RecordPairsFound(len(pairs))
	s.metrics.RecordLatency("scan", time.Since(start).Seconds())

	if s.l != nil {
		s.l.Info("pair scan complete",
			applogger.Int("universe", universe.Len()),
			applogger.Int("targets", len(targets)),
			applogger.Int("pairs", len(pairs)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}

	if err := s.sink.SinkPairs(ctx, pairs); err != nil {
		return summary, pairs, err
	}
	return summary, pairs, nil
}

// selectTargets resolves configured targets against the universe, or
// picks the top tickers by trailing average daily volume.
func (s *PairScanner) selectTargets(ctx context.Context, universe *models.Universe) ([]models.Ticker, error) {
	if len(s.targets) > 0 {
		out := make([]models.Ticker, 0, len(s.targets))
		for _, sym := range s.targets {
			t, ok := universe.Lookup(sym)
			if !ok {
				if s.l != nil {
					s.l.Warn("configured target not in universe", applogger.String("symbol", sym))
				}
				continue
			}
			out = append(out, t)
		}
		return out, nil
	}

	symbols := make([]string, 0, universe.Len())
	for _, t := range universe.Tickers() {
		symbols = append(symbols, t.Symbol)
	}

	volumes, err := s.bars.AverageVolumes(ctx, symbols, s.volumeDays)
	if err != nil {
		s.metrics.RecordError("average_volumes")
		return nil, fmt.Errorf("average volumes: %w", err)
	}

	ranked := make([]string, 0, len(volumes))
	for sym := range volumes {
		ranked = append(ranked, sym)
	}
	sort.Slice(ranked, func(i, j int) bool {
		vi, vj := volumes[ranked[i]], volumes[ranked[j]]
		if vi != vj {
			return vi > vj
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > s.topVolumeCount {
		ranked = ranked[:s.topVolumeCount]
	}

	out := make([]models.Ticker, 0, len(ranked))
	for _, sym := range ranked {
		if t, ok := universe.Lookup(sym); ok {
			out = append(out, t)
		}
	}
	return out, nil
}
