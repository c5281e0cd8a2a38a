package matching

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"TypoTrade/internal/domain/models"
)

// Matcher scans the ticker universe for confusable pairs. Each
// (target, candidate) comparison is independent, so targets are fanned out
// over a bounded worker pool; the output is sorted so the result set is
// identical across runs regardless of scheduling.
type Matcher struct {
	threshold int
	workers   int
}

// NewMatcher creates a matcher with the given distance threshold.
func NewMatcher(threshold, workers int) (*Matcher, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("distance threshold must be >= 0, got %d", threshold)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Matcher{
		threshold: threshold,
		workers:   workers,
	}, nil
}

// FindCandidates compares every target against the whole universe and
// returns pairs within the distance threshold, annotated with keyboard
// proximity and the intentionality classification. Excluded pairs are
// returned with Excluded set rather than dropped, so reporting can show
// what was filtered and why.
func (m *Matcher) FindCandidates(ctx context.Context, universe *models.Universe, targets []models.Ticker) ([]models.CandidatePair, error) {
	if universe == nil || universe.Len() == 0 {
		return nil, fmt.Errorf("universe is empty")
	}

	jobs := make(chan models.Ticker)
	var mu sync.Mutex
	var pairs []models.CandidatePair
	var wg sync.WaitGroup

	for w := 0; w < m.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// one filter per worker: its regexp cache is not shared
			filter := NewIntentionalFilter()
			for target := range jobs {
				found := m.scanTarget(target, universe, filter)
				if len(found) == 0 {
					continue
				}
				mu.Lock()
				pairs = append(pairs, found...)
				mu.Unlock()
			}
		}()
	}

	var cancelled error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Target.Symbol != pairs[j].Target.Symbol {
			return pairs[i].Target.Symbol < pairs[j].Target.Symbol
		}
		return pairs[i].Candidate.Symbol < pairs[j].Candidate.Symbol
	})
	return pairs, nil
}

func (m *Matcher) scanTarget(target models.Ticker, universe *models.Universe, filter *IntentionalFilter) []models.CandidatePair {
	var out []models.CandidatePair
	for _, cand := range universe.Tickers() {
		if cand.Symbol == target.Symbol {
			continue
		}
		// cheap length bound before the full distance computation
		if diff := len(cand.Symbol) - len(target.Symbol); diff > m.threshold || -diff > m.threshold {
			continue
		}
		dist := Distance(target.Symbol, cand.Symbol)
		if dist > m.threshold {
			continue
		}
		excluded, reason := filter.Classify(target, cand)
		out = append(out, models.CandidatePair{
			Target:            target,
			Candidate:         cand,
			Distance:          dist,
			KeyboardProximate: ClassifyProximate(target.Symbol, cand.Symbol),
			Excluded:          excluded,
			ExclusionReason:   reason,
		})
	}
	return out
}
