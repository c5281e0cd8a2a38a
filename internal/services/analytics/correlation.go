package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"TypoTrade/internal/domain/models"
)

// Mask restricts a correlation to a subset of aligned points. It sees the
// timestamp and the target-side return of each point.
type Mask func(ts time.Time, targetReturn float64) bool

// BuyingPressure keeps only points where the target moved up.
func BuyingPressure(_ time.Time, targetReturn float64) bool {
	return targetReturn > 0
}

// AnomalyMask keeps only points whose timestamp is one of the anomalous
// events.
func AnomalyMask(events []models.AnomalyEvent) Mask {
	set := make(map[int64]bool, len(events))
	for _, e := range events {
		if e.Anomalous {
			set[e.Timestamp.Unix()] = true
		}
	}
	return func(ts time.Time, _ float64) bool {
		return set[ts.Unix()]
	}
}

// CorrelationEngine computes Pearson correlations between aligned target
// and candidate return series, optionally masked and bucketed by
// time-of-day. Results below the sample floor are omitted, never
// zero-filled.
type CorrelationEngine struct {
	MinSample   int
	BucketWidth time.Duration
}

// NewCorrelationEngine validates the options up front.
func NewCorrelationEngine(minSample int, bucketWidth time.Duration) (*CorrelationEngine, error) {
	if minSample < 2 {
		return nil, fmt.Errorf("minimum correlation sample must be >= 2, got %d", minSample)
	}
	if bucketWidth < time.Minute || bucketWidth > 390*time.Minute {
		return nil, fmt.Errorf("bucket width %v outside 1m..390m", bucketWidth)
	}
	return &CorrelationEngine{MinSample: minSample, BucketWidth: bucketWidth}, nil
}

// Correlate aligns the two series by timestamp (inner join), applies the
// optional mask, and returns one result under the given scope. The
// correlation is nil when the masked sample is below the floor or a leg
// has zero variance.
func (e *CorrelationEngine) Correlate(target, candidate string, t, c []models.ReturnPoint, scope string, mask Mask) models.CorrelationResult {
	ts, tv, cv := AlignReturns(t, c)
	tv, cv, _ = applyMask(ts, tv, cv, mask)

	res := models.CorrelationResult{
		Target:     target,
		Candidate:  candidate,
		Scope:      scope,
		SampleSize: len(tv),
	}
	if len(tv) >= e.MinSample {
		res.Correlation = pearson(tv, cv)
	}
	return res
}

// CorrelateBuckets partitions the aligned, masked series by time-of-day
// bucket and computes one correlation per bucket, plus a best-time result
// holding the bucket with the largest absolute correlation among buckets
// that met the sample floor. Buckets below the floor are absent from the
// output entirely.
func (e *CorrelationEngine) CorrelateBuckets(target, candidate string, t, c []models.ReturnPoint, mask Mask) []models.CorrelationResult {
	ts, tv, cv := AlignReturns(t, c)
	tv, cv, ts = applyMask(ts, tv, cv, mask)

	type bucket struct {
		t, c []float64
	}
	buckets := make(map[string]*bucket)
	for i, at := range ts {
		label := e.BucketLabel(at)
		b := buckets[label]
		if b == nil {
			b = &bucket{}
			buckets[label] = b
		}
		b.t = append(b.t, tv[i])
		b.c = append(b.c, cv[i])
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var out []models.CorrelationResult
	var best *models.CorrelationResult
	for _, label := range labels {
		b := buckets[label]
		if len(b.t) < e.MinSample {
			continue
		}
		r := models.CorrelationResult{
			Target:      target,
			Candidate:   candidate,
			Scope:       models.ScopeTimeBucket,
			TimeBucket:  label,
			Correlation: pearson(b.t, b.c),
			SampleSize:  len(b.t),
		}
		out = append(out, r)
		if r.Correlation == nil {
			continue
		}
		if best == nil || math.Abs(*r.Correlation) > math.Abs(*best.Correlation) {
			cp := r
			best = &cp
		}
	}
	if best != nil {
		best.Scope = models.ScopeBestTime
		out = append(out, *best)
	}
	return out
}

// BucketLabel floors a timestamp to its time-of-day bucket. Timestamps
// must be normalized to a single timezone before bucketing; the label is
// taken from the timestamp's own wall clock.
func (e *CorrelationEngine) BucketLabel(ts time.Time) string {
	midnight := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	floored := midnight.Add(ts.Sub(midnight) / e.BucketWidth * e.BucketWidth)
	return floored.Format("15:04")
}

func applyMask(ts []time.Time, tv, cv []float64, mask Mask) ([]float64, []float64, []time.Time) {
	if mask == nil {
		return tv, cv, ts
	}
	var ft, fc []float64
	var fts []time.Time
	for i := range ts {
		if mask(ts[i], tv[i]) {
			ft = append(ft, tv[i])
			fc = append(fc, cv[i])
			fts = append(fts, ts[i])
		}
	}
	return ft, fc, fts
}
