package analytics

import (
	"fmt"

	"TypoTrade/internal/domain/models"
)

// Exit policies for the hedged simulation.
const (
	ExitClose       = "close"        // exit at the last bar's close
	ExitHighCapture = "high_capture" // exit at entry + fraction of the window's high-above-entry
	ExitBucketEnd   = "bucket_end"   // exit at the close of the bucket window
)

// Simulation describes one hedged Long-Target/Short-Candidate trade over
// an event window. Target and Candidate must be bar-for-bar aligned; the
// first bar's open is the entry.
type Simulation struct {
	Pair       models.CandidatePair
	Target     []models.PriceBar
	Candidate  []models.PriceBar
	HedgeRatio float64
	Policy     string
	// LookaheadHedge records that the hedge ratio was computed from the
	// full window rather than data available at entry. Sizing the hedge
	// from the best-bucket correlation is hindsight; the bias is carried
	// into the result instead of being silently corrected.
	LookaheadHedge bool
}

// BacktestSimulator turns event windows into BacktestResults. It never
// reaches ahead of the entry decision itself: the hedge ratio is an input,
// and its provenance is recorded on the simulation.
type BacktestSimulator struct {
	CaptureFraction float64 // share of the open-to-high move assumed captured
}

// NewBacktestSimulator validates the capture fraction.
func NewBacktestSimulator(captureFraction float64) (*BacktestSimulator, error) {
	if captureFraction <= 0 || captureFraction > 1 {
		return nil, fmt.Errorf("capture fraction must be in (0,1], got %v", captureFraction)
	}
	return &BacktestSimulator{CaptureFraction: captureFraction}, nil
}

// Simulate runs one hedged trade and reports raw return, hedged return,
// alpha in basis points per sub-period, and a Sharpe-like ratio across the
// window's sub-periods. Sharpe is absent when the hedged return has zero
// dispersion.
func (s *BacktestSimulator) Simulate(sim Simulation) (models.BacktestResult, error) {
	if len(sim.Target) == 0 || len(sim.Candidate) == 0 {
		return models.BacktestResult{}, fmt.Errorf("empty event window")
	}
	if len(sim.Target) != len(sim.Candidate) {
		return models.BacktestResult{}, fmt.Errorf("%w: %d target bars vs %d candidate bars",
			ErrMisalignedSeries, len(sim.Target), len(sim.Candidate))
	}
	for i := range sim.Target {
		if !sim.Target[i].Timestamp.Equal(sim.Candidate[i].Timestamp) {
			return models.BacktestResult{}, fmt.Errorf("%w: bar %d", ErrMisalignedSeries, i)
		}
	}
	if err := ValidateBars(sim.Target); err != nil {
		return models.BacktestResult{}, err
	}

	hedge := sim.HedgeRatio
	if hedge < 0 {
		hedge = -hedge // short side sizing uses correlation magnitude
	}
	if hedge > 1 {
		hedge = 1
	}

	entry := sim.Target[0].Open
	if entry == 0 {
		return models.BacktestResult{}, fmt.Errorf("entry price is zero")
	}
	exit, exitIdx := s.exitPrice(sim.Target, entry, sim.Policy)
	rawReturn := (exit - entry) / entry

	candEntry := sim.Candidate[0].Open
	candExit := sim.Candidate[exitIdx].Close
	candReturn := 0.0
	if candEntry != 0 {
		candReturn = (candExit - candEntry) / candEntry
	}
	hedgedReturn := rawReturn - hedge*candReturn

	// Per-sub-period stats across the window: close-to-close legs, first
	// leg open-to-close so a one-bar (daily event) window still yields a
	// period.
	tRets := intraWindowReturns(sim.Target)
	cRets := intraWindowReturns(sim.Candidate)
	hRets := make([]float64, len(tRets))
	for i := range tRets {
		hRets[i] = tRets[i] - hedge*cRets[i]
	}

	alphaBps := (mean(hRets) - mean(tRets)) * 10000

	res := models.BacktestResult{
		Target:         sim.Pair.Target.Symbol,
		Candidate:      sim.Pair.Candidate.Symbol,
		EventTime:      sim.Target[0].Timestamp,
		EntryPrice:     entry,
		ExitPrice:      exit,
		HedgeRatio:     hedge,
		RawReturn:      rawReturn,
		HedgedReturn:   hedgedReturn,
		AlphaBps:       alphaBps,
		Periods:        len(hRets),
		ExitPolicy:     sim.Policy,
		LookaheadHedge: sim.LookaheadHedge,
	}

	if sd := stddev(hRets); sd > 0 {
		sharpe := mean(hRets) / sd
		res.Sharpe = &sharpe
	}
	if sdu := stddev(tRets); sdu > 0 {
		reduction := (1 - stddev(hRets)/sdu) * 100
		res.VolReductionPc = &reduction
	}
	return res, nil
}

func (s *BacktestSimulator) exitPrice(bars []models.PriceBar, entry float64, policy string) (float64, int) {
	last := len(bars) - 1
	switch policy {
	case ExitHighCapture:
		high, idx := entry, 0
		for i, b := range bars {
			if b.High > high {
				high, idx = b.High, i
			}
		}
		return entry + s.CaptureFraction*(high-entry), idx
	case ExitBucketEnd, ExitClose:
		return bars[last].Close, last
	default:
		return bars[last].Close, last
	}
}

// intraWindowReturns yields one return per bar: open-to-close for the
// first bar, close-to-close after that.
func intraWindowReturns(bars []models.PriceBar) []float64 {
	out := make([]float64, 0, len(bars))
	if bars[0].Open != 0 {
		out = append(out, (bars[0].Close-bars[0].Open)/bars[0].Open)
	} else {
		out = append(out, 0)
	}
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (bars[i].Close-prev)/prev)
	}
	return out
}
