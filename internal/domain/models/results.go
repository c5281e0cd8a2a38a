package models

import "time"

// Correlation scopes.
const (
	ScopeBaseline   = "baseline"
	ScopeHighVolume = "high_volume"
	ScopeBuying     = "buying_pressure"
	ScopeTimeBucket = "time_bucket"
	ScopeBestTime   = "best_time"

	// Buying-pressure-masked counterparts of the bucket scopes.
	ScopeTimeBucketBuy = "time_bucket_buying"
	ScopeBestTimeBuy   = "best_time_buying"
)

// CorrelationResult is one Pearson correlation between a target and a
// candidate return series under a scope. Correlation is nil when the
// sample floor is not met or a series has zero variance; an undefined
// correlation is never coerced to a number.
type CorrelationResult struct {
	Target      string   `json:"target"`
	Candidate   string   `json:"candidate"`
	Scope       string   `json:"scope"`
	TimeBucket  string   `json:"time_bucket,omitempty"`
	Correlation *float64 `json:"correlation"`
	SampleSize  int      `json:"sample_size"`
}

// Defined reports whether the correlation could be computed.
func (r CorrelationResult) Defined() bool { return r.Correlation != nil }

// BacktestResult is the outcome of one hedged Long-Target/Short-Candidate
// simulation over one event window. Immutable after creation.
type BacktestResult struct {
	Target         string    `json:"target"`
	Candidate      string    `json:"candidate"`
	EventTime      time.Time `json:"event_time"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      float64   `json:"exit_price"`
	HedgeRatio     float64   `json:"hedge_ratio"`
	RawReturn      float64   `json:"raw_return"`
	HedgedReturn   float64   `json:"hedged_return"`
	AlphaBps       float64   `json:"alpha_bps"`
	Sharpe         *float64  `json:"sharpe"`
	VolReductionPc *float64  `json:"vol_reduction_pct"`
	Periods        int       `json:"periods"`
	ExitPolicy     string    `json:"exit_policy"`
	// LookaheadHedge marks results whose hedge ratio was derived from the
	// full-window correlation rather than data available at entry. The
	// bias is reported, not hidden.
	LookaheadHedge bool `json:"lookahead_hedge"`
}

// IPOEvent records the candidate ticker's market reaction on the target's
// IPO day.
type IPOEvent struct {
	Pair               CandidatePair `json:"pair"`
	IPODate            time.Time     `json:"ipo_date"`
	TradingDate        time.Time     `json:"trading_date"`
	CandidateOpen      float64       `json:"candidate_open"`
	CandidateHigh      float64       `json:"candidate_high"`
	CandidateClose     float64       `json:"candidate_close"`
	CandidateVolume    float64       `json:"candidate_volume"`
	AvgVolume5d        float64       `json:"avg_volume_5d"`
	VolumeSpikeRatio   float64       `json:"volume_spike_ratio"`
	GapUpPct           float64       `json:"gap_up_pct"`
	IntradayHighPct    float64       `json:"intraday_high_pct"`
	ReversionFromHigh  float64       `json:"reversion_from_high_pct"`
	DayReturn          float64       `json:"day_return"`
}

// RunSummary is the aggregate outcome of one batch mode. Items that could
// not produce a statistic are counted, never reported as zeros.
type RunSummary struct {
	Mode               string `json:"mode"`
	PairsProcessed     int    `json:"pairs_processed"`
	ResultsProduced    int    `json:"results_produced"`
	InsufficientSample int    `json:"insufficient_sample"`
	Failed             int    `json:"failed"`
}
