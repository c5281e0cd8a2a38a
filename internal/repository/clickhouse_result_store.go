package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TypoTrade/internal/domain/models"
	domrepo "TypoTrade/internal/domain/repository"
	pkgch "TypoTrade/pkg/clickhouse"
	applogger "TypoTrade/pkg/logger"
)

const resultInsertChunk = 1000

// Schema statements for the study database. Idempotent; applied by Init.
var schemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS typo_trading`,
	`CREATE TABLE IF NOT EXISTS typo_trading.candidate_pairs (
        target String,
        candidate String,
        target_name String,
        candidate_name String,
        distance UInt8,
        keyboard_proximate UInt8,
        excluded UInt8,
        exclusion_reason String,
        created_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(created_at) ORDER BY (target, candidate)`,
	`CREATE TABLE IF NOT EXISTS typo_trading.correlation_study (
        target String,
        candidate String,
        scope LowCardinality(String),
        time_bucket String,
        correlation Nullable(Float64),
        sample_size UInt32,
        created_at DateTime DEFAULT now()
    ) ENGINE = MergeTree ORDER BY (target, candidate, scope, time_bucket)`,
	`CREATE TABLE IF NOT EXISTS typo_trading.backtests (
        target String,
        candidate String,
        event_time DateTime,
        entry_price Float64,
        exit_price Float64,
        hedge_ratio Float64,
        raw_return Float64,
        hedged_return Float64,
        alpha_bps Float64,
        sharpe Nullable(Float64),
        vol_reduction_pct Nullable(Float64),
        periods UInt32,
        exit_policy LowCardinality(String),
        lookahead_hedge UInt8,
        created_at DateTime DEFAULT now()
    ) ENGINE = MergeTree ORDER BY (target, candidate, event_time)`,
	`CREATE TABLE IF NOT EXISTS typo_trading.ipo_events (
        target String,
        candidate String,
        ipo_date Date,
        trading_date Date,
        candidate_open Float64,
        candidate_high Float64,
        candidate_close Float64,
        candidate_volume Float64,
        avg_volume_5d Float64,
        volume_spike_ratio Float64,
        gap_up_pct Float64,
        intraday_high_pct Float64,
        reversion_from_high_pct Float64,
        day_return Float64,
        created_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(created_at) ORDER BY (target, candidate, ipo_date)`,
}

// CHResultStore implements ResultStore backed by ClickHouse.
type CHResultStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client) *CHResultStore {
	return &CHResultStore{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, schemaStatements)
}

func (s *CHResultStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHResultStore) Close() error {
	return s.ch.Close()
}

func (s *CHResultStore) StorePairs(ctx context.Context, pairs []models.CandidatePair) error {
	if len(pairs) == 0 {
		return nil
	}
	cols := "(target, candidate, target_name, candidate_name, distance, keyboard_proximate, excluded, exclusion_reason)"
	return s.insertChunked(ctx, "typo_trading.candidate_pairs", cols, 8, len(pairs), func(i int, args []interface{}) []interface{} {
		p := pairs[i]
		return append(args,
			p.Target.Symbol,
			p.Candidate.Symbol,
			p.Target.Name,
			p.Candidate.Name,
			uint8(p.Distance),
			boolToUInt8(p.KeyboardProximate),
			boolToUInt8(p.Excluded),
			p.ExclusionReason,
		)
	})
}

func (s *CHResultStore) StoreCorrelations(ctx context.Context, results []models.CorrelationResult) error {
	if len(results) == 0 {
		return nil
	}
	cols := "(target, candidate, scope, time_bucket, correlation, sample_size)"
	return s.insertChunked(ctx, "typo_trading.correlation_study", cols, 6, len(results), func(i int, args []interface{}) []interface{} {
		r := results[i]
		return append(args,
			r.Target,
			r.Candidate,
			r.Scope,
			r.TimeBucket,
			r.Correlation,
			uint32(r.SampleSize),
		)
	})
}

func (s *CHResultStore) StoreBacktests(ctx context.Context, results []models.BacktestResult) error {
	if len(results) == 0 {
		return nil
	}
	cols := "(target, candidate, event_time, entry_price, exit_price, hedge_ratio, raw_return, hedged_return, alpha_bps, sharpe, vol_reduction_pct, periods, exit_policy, lookahead_hedge)"
	return s.insertChunked(ctx, "typo_trading.backtests", cols, 14, len(results), func(i int, args []interface{}) []interface{} {
		r := results[i]
		return append(args,
			r.Target,
			r.Candidate,
			r.EventTime,
			r.EntryPrice,
			r.ExitPrice,
			r.HedgeRatio,
			r.RawReturn,
			r.HedgedReturn,
			r.AlphaBps,
			r.Sharpe,
			r.VolReductionPc,
			uint32(r.Periods),
			r.ExitPolicy,
			boolToUInt8(r.LookaheadHedge),
		)
	})
}

func (s *CHResultStore) StoreIPOEvents(ctx context.Context, events []models.IPOEvent) error {
	if len(events) == 0 {
		return nil
	}
	cols := "(target, candidate, ipo_date, trading_date, candidate_open, candidate_high, candidate_close, candidate_volume, avg_volume_5d, volume_spike_ratio, gap_up_pct, intraday_high_pct, reversion_from_high_pct, day_return)"
	return s.insertChunked(ctx, "typo_trading.ipo_events", cols, 14, len(events), func(i int, args []interface{}) []interface{} {
		e := events[i]
		return append(args,
			e.Pair.Target.Symbol,
			e.Pair.Candidate.Symbol,
			e.IPODate,
			e.TradingDate,
			e.CandidateOpen,
			e.CandidateHigh,
			e.CandidateClose,
			e.CandidateVolume,
			e.AvgVolume5d,
			e.VolumeSpikeRatio,
			e.GapUpPct,
			e.IntradayHighPct,
			e.ReversionFromHigh,
			e.DayReturn,
		)
	})
}

func (s *CHResultStore) QueryPairs(ctx context.Context, target string, includeExcluded bool, limit int) ([]models.CandidatePair, error) {
	start := time.Now()
	q := `
        SELECT target, candidate, target_name, candidate_name, distance, keyboard_proximate, excluded, exclusion_reason
        FROM typo_trading.candidate_pairs FINAL
        WHERE (? = '' OR target = ?) AND (excluded = 0 OR ? = 1)
        ORDER BY target, candidate
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, target, target, boolToUInt8(includeExcluded), limit)
	if err != nil {
		s.logQueryErr("query_pairs", err)
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var out []models.CandidatePair
	for rows.Next() {
		var p models.CandidatePair
		var distance, proximate, excluded uint8
		if err := rows.Scan(&p.Target.Symbol, &p.Candidate.Symbol, &p.Target.Name, &p.Candidate.Name,
			&distance, &proximate, &excluded, &p.ExclusionReason); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		p.Distance = int(distance)
		p.KeyboardProximate = proximate != 0
		p.Excluded = excluded != 0
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.logQueryOK("query_pairs", len(out), time.Since(start))
	return out, nil
}

func (s *CHResultStore) QueryCorrelations(ctx context.Context, target, candidate, scope string, limit int) ([]models.CorrelationResult, error) {
	start := time.Now()
	q := `
        SELECT target, candidate, scope, time_bucket, correlation, sample_size
        FROM typo_trading.correlation_study
        WHERE (? = '' OR target = ?) AND (? = '' OR candidate = ?) AND (? = '' OR scope = ?)
        ORDER BY target, candidate, scope, time_bucket
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, target, target, candidate, candidate, scope, scope, limit)
	if err != nil {
		s.logQueryErr("query_correlations", err)
		return nil, fmt.Errorf("query correlations: %w", err)
	}
	defer rows.Close()

	var out []models.CorrelationResult
	for rows.Next() {
		var r models.CorrelationResult
		var sample uint32
		if err := rows.Scan(&r.Target, &r.Candidate, &r.Scope, &r.TimeBucket, &r.Correlation, &sample); err != nil {
			return nil, fmt.Errorf("scan correlation: %w", err)
		}
		r.SampleSize = int(sample)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.logQueryOK("query_correlations", len(out), time.Since(start))
	return out, nil
}

func (s *CHResultStore) QueryBacktests(ctx context.Context, target string, limit int) ([]models.BacktestResult, error) {
	start := time.Now()
	q := `
        SELECT target, candidate, event_time, entry_price, exit_price, hedge_ratio, raw_return,
               hedged_return, alpha_bps, sharpe, vol_reduction_pct, periods, exit_policy, lookahead_hedge
        FROM typo_trading.backtests
        WHERE (? = '' OR target = ?)
        ORDER BY event_time DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, target, target, limit)
	if err != nil {
		s.logQueryErr("query_backtests", err)
		return nil, fmt.Errorf("query backtests: %w", err)
	}
	defer rows.Close()

	var out []models.BacktestResult
	for rows.Next() {
		var r models.BacktestResult
		var periods uint32
		var lookahead uint8
		if err := rows.Scan(&r.Target, &r.Candidate, &r.EventTime, &r.EntryPrice, &r.ExitPrice,
			&r.HedgeRatio, &r.RawReturn, &r.HedgedReturn, &r.AlphaBps, &r.Sharpe, &r.VolReductionPc,
			&periods, &r.ExitPolicy, &lookahead); err != nil {
			return nil, fmt.Errorf("scan backtest: %w", err)
		}
		r.Periods = int(periods)
		r.LookaheadHedge = lookahead != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.logQueryOK("query_backtests", len(out), time.Since(start))
	return out, nil
}

func (s *CHResultStore) QueryIPOEvents(ctx context.Context, minSpikeRatio float64, limit int) ([]models.IPOEvent, error) {
	start := time.Now()
	q := `
        SELECT target, candidate, ipo_date, trading_date, candidate_open, candidate_high, candidate_close,
               candidate_volume, avg_volume_5d, volume_spike_ratio, gap_up_pct, intraday_high_pct,
               reversion_from_high_pct, day_return
        FROM typo_trading.ipo_events FINAL
        WHERE volume_spike_ratio >= ?
        ORDER BY ipo_date DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, minSpikeRatio, limit)
	if err != nil {
		s.logQueryErr("query_ipo_events", err)
		return nil, fmt.Errorf("query ipo events: %w", err)
	}
	defer rows.Close()

	var out []models.IPOEvent
	for rows.Next() {
		var e models.IPOEvent
		if err := rows.Scan(&e.Pair.Target.Symbol, &e.Pair.Candidate.Symbol, &e.IPODate, &e.TradingDate,
			&e.CandidateOpen, &e.CandidateHigh, &e.CandidateClose, &e.CandidateVolume, &e.AvgVolume5d,
			&e.VolumeSpikeRatio, &e.GapUpPct, &e.IntradayHighPct, &e.ReversionFromHigh, &e.DayReturn); err != nil {
			return nil, fmt.Errorf("scan ipo event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.logQueryOK("query_ipo_events", len(out), time.Since(start))
	return out, nil
}

// insertChunked builds multi-row VALUES inserts to keep round-trips low.
func (s *CHResultStore) insertChunked(ctx context.Context, table, cols string, width, n int, fill func(i int, args []interface{}) []interface{}) error {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"
	for start := 0; start < n; start += resultInsertChunk {
		end := start + resultInsertChunk
		if end > n {
			end = n
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*width)
		for i := start; i < end; i++ {
			values = append(values, placeholder)
			args = fill(i, args)
		}
		q := fmt.Sprintf("INSERT INTO %s %s VALUES %s", table, cols, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (s *CHResultStore) logQueryErr(op string, err error) {
	if s.l != nil {
		s.l.Error("clickhouse query error",
			applogger.String("op", op),
			applogger.Error(err),
		)
	}
}

func (s *CHResultStore) logQueryOK(op string, rows int, d time.Duration) {
	if s.l != nil {
		s.l.Debug("clickhouse query ok",
			applogger.String("op", op),
			applogger.Int("rows", rows),
			applogger.Duration("duration_ms", d),
		)
	}
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)
