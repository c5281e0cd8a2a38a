package usecase

import (
	"context"
	"fmt"
	"time"

	"TypoTrade/internal/domain/models"
	drepo "TypoTrade/internal/domain/repository"
)

// ResultSink routes study output to the configured backend. One sink is
// shared by all batch modes; the backend decision is made once at startup.
type ResultSink struct {
	pub     drepo.Publisher
	store   drepo.ResultStore
	metrics drepo.Metrics
	backend string
}

// NewResultSink creates a ResultSink for the given backend.
func NewResultSink(
	pub drepo.Publisher,
	store drepo.ResultStore,
	metrics drepo.Metrics,
	backend string,
) *ResultSink {
	return &ResultSink{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// SinkPairs delivers candidate pairs to the backend.
func (s *ResultSink) SinkPairs(ctx context.Context, pairs []models.CandidatePair) error {
	return s.sink(ctx, "pairs", len(pairs), func() error {
		switch s.backend {
		case "kafka":
			return s.pub.PublishPairs(ctx, pairs)
		case "clickhouse":
			return s.store.StorePairs(ctx, pairs)
		default:
			return fmt.Errorf("unknown backend: %s", s.backend)
		}
	})
}

// SinkCorrelations delivers correlation results to the backend.
func (s *ResultSink) SinkCorrelations(ctx context.Context, results []models.CorrelationResult) error {
	return s.sink(ctx, "correlations", len(results), func() error {
		switch s.backend {
		case "kafka":
			return s.pub.PublishCorrelations(ctx, results)
		case "clickhouse":
			return s.store.StoreCorrelations(ctx, results)
		default:
			return fmt.Errorf("unknown backend: %s", s.backend)
		}
	})
}

// SinkBacktests delivers backtest results to the backend.
func (s *ResultSink) SinkBacktests(ctx context.Context, results []models.BacktestResult) error {
	return s.sink(ctx, "backtests", len(results), func() error {
		switch s.backend {
		case "kafka":
			return s.pub.PublishBacktests(ctx, results)
		case "clickhouse":
			return s.store.StoreBacktests(ctx, results)
		default:
			return fmt.Errorf("unknown backend: %s", s.backend)
		}
	})
}

// SinkIPOEvents delivers IPO day events to the backend.
func (s *ResultSink) SinkIPOEvents(ctx context.Context, events []models.IPOEvent) error {
	return s.sink(ctx, "ipo_events", len(events), func() error {
		switch s.backend {
		case "kafka":
			return s.pub.PublishIPOEvents(ctx, events)
		case "clickhouse":
			return s.store.StoreIPOEvents(ctx, events)
		default:
			return fmt.Errorf("unknown backend: %s", s.backend)
		}
	})
}

func (s *ResultSink) sink(ctx context.Context, kind string, n int, deliver func() error) error {
	if n == 0 {
		return nil
	}
	start := time.Now()
	if err := deliver(); err != nil {
		s.metrics.RecordError("sink_" + kind)
		return fmt.Errorf("sink %s: %w", kind, err)
	}
	for i := 0; i < n; i++ {
		s.metrics.RecordResultWritten(s.backend, kind)
	}
	s.metrics.RecordLatency("sink_"+kind, time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (s *ResultSink) Close() {
	if s.pub != nil {
		_ = s.pub.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}
