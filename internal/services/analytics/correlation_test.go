package analytics

import (
	"math"
	"testing"
	"time"

	"TypoTrade/internal/domain/models"
)

func retSeries(start time.Time, step time.Duration, vals ...float64) []models.ReturnPoint {
	out := make([]models.ReturnPoint, len(vals))
	for i, v := range vals {
		out[i] = models.ReturnPoint{Timestamp: start.Add(time.Duration(i) * step), Value: v}
	}
	return out
}

func TestCorrelateSelf(t *testing.T) {
	e, err := NewCorrelationEngine(3, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewCorrelationEngine: %v", err)
	}
	s := retSeries(t0, time.Minute, 0.01, -0.02, 0.03, 0.005, -0.01)
	res := e.Correlate("TSLA", "TSLA", s, s, models.ScopeBaseline, nil)
	if !res.Defined() {
		t.Fatalf("self correlation undefined")
	}
	if math.Abs(*res.Correlation-1) > 1e-12 {
		t.Fatalf("self correlation = %v, want 1", *res.Correlation)
	}
	if res.SampleSize != 5 {
		t.Fatalf("sample size = %d, want 5", res.SampleSize)
	}
}

func TestCorrelateNegation(t *testing.T) {
	e, _ := NewCorrelationEngine(3, 30*time.Minute)
	s := retSeries(t0, time.Minute, 0.01, -0.02, 0.03, 0.005, -0.01)
	neg := make([]models.ReturnPoint, len(s))
	for i, p := range s {
		neg[i] = models.ReturnPoint{Timestamp: p.Timestamp, Value: -p.Value}
	}
	res := e.Correlate("TSLA", "TSLL", s, neg, models.ScopeBaseline, nil)
	if !res.Defined() || math.Abs(*res.Correlation+1) > 1e-12 {
		t.Fatalf("negated correlation = %+v, want -1", res.Correlation)
	}
}

func TestCorrelateZeroVarianceUndefined(t *testing.T) {
	e, _ := NewCorrelationEngine(3, 30*time.Minute)
	s := retSeries(t0, time.Minute, 0.01, -0.02, 0.03, 0.005)
	flat := retSeries(t0, time.Minute, 0.01, 0.01, 0.01, 0.01)
	res := e.Correlate("TSLA", "TSLL", s, flat, models.ScopeBaseline, nil)
	if res.Defined() {
		t.Fatalf("zero-variance correlation must be undefined, got %v", *res.Correlation)
	}
	if res.SampleSize != 4 {
		t.Fatalf("sample size = %d, want 4", res.SampleSize)
	}
}

func TestCorrelateMaskBelowFloorOmitted(t *testing.T) {
	e, _ := NewCorrelationEngine(3, 30*time.Minute)
	s := retSeries(t0, time.Minute, 0.01, -0.02, 0.03, -0.005, -0.01)
	c := retSeries(t0, time.Minute, 0.02, -0.01, 0.01, -0.002, -0.03)
	// buying pressure keeps only the two positive target points
	res := e.Correlate("TSLA", "TSLL", s, c, models.ScopeBuying, BuyingPressure)
	if res.Defined() {
		t.Fatalf("sub-floor masked sample must be undefined, not %v", *res.Correlation)
	}
	if res.SampleSize != 2 {
		t.Fatalf("masked sample size = %d, want 2", res.SampleSize)
	}
}

func TestCorrelateAnomalyMask(t *testing.T) {
	e, _ := NewCorrelationEngine(3, 30*time.Minute)
	s := retSeries(t0, 24*time.Hour, 0.01, -0.02, 0.03, 0.04, -0.01)
	c := retSeries(t0, 24*time.Hour, 0.012, -0.018, 0.029, 0.041, -0.008)
	events := []models.AnomalyEvent{
		{Timestamp: t0, Anomalous: true},
		{Timestamp: t0.Add(24 * time.Hour), Anomalous: false},
		{Timestamp: t0.Add(48 * time.Hour), Anomalous: true},
		{Timestamp: t0.Add(72 * time.Hour), Anomalous: true},
	}
	res := e.Correlate("TSLA", "TSLL", s, c, models.ScopeHighVolume, AnomalyMask(events))
	if res.SampleSize != 3 {
		t.Fatalf("anomaly-masked sample = %d, want 3", res.SampleSize)
	}
	if !res.Defined() {
		t.Fatalf("expected a defined correlation on 3 points")
	}
}

func TestCorrelateBucketsBestTime(t *testing.T) {
	e, _ := NewCorrelationEngine(3, 30*time.Minute)

	day := func(d int, hh, mm int) time.Time {
		return time.Date(2025, 3, 3+d, hh, mm, 0, 0, time.UTC)
	}
	var tgt, cnd []models.ReturnPoint
	// 09:30 bucket: tightly correlated across 3 days
	for d := 0; d < 3; d++ {
		for i, v := range []float64{0.01, -0.01, 0.02} {
			ts := day(d, 9, 30+i)
			tgt = append(tgt, models.ReturnPoint{Timestamp: ts, Value: v})
			cnd = append(cnd, models.ReturnPoint{Timestamp: ts, Value: v * 0.9})
		}
	}
	// 12:00 bucket: uncorrelated noise
	noiseT := []float64{0.01, -0.02, 0.005, 0.002, -0.004, 0.015, -0.007, 0.001, 0.003}
	noiseC := []float64{-0.003, 0.011, -0.009, 0.004, 0.001, -0.012, 0.006, -0.002, 0.009}
	for i := range noiseT {
		ts := day(i/3, 12, i%3)
		tgt = append(tgt, models.ReturnPoint{Timestamp: ts, Value: noiseT[i]})
		cnd = append(cnd, models.ReturnPoint{Timestamp: ts, Value: noiseC[i]})
	}
	sortReturns(tgt)
	sortReturns(cnd)

	results := e.CorrelateBuckets("TSLA", "TSLL", tgt, cnd, nil)
	var best *models.CorrelationResult
	labels := map[string]bool{}
	for i := range results {
		r := results[i]
		if r.Scope == models.ScopeBestTime {
			best = &results[i]
			continue
		}
		labels[r.TimeBucket] = true
	}
	if !labels["09:30"] || !labels["12:00"] {
		t.Fatalf("expected 09:30 and 12:00 buckets, got %v", labels)
	}
	if best == nil {
		t.Fatalf("no best-time result")
	}
	if best.TimeBucket != "09:30" {
		t.Fatalf("best time = %s, want 09:30", best.TimeBucket)
	}
	if !best.Defined() || math.Abs(*best.Correlation-1) > 1e-9 {
		t.Fatalf("best-time correlation = %+v, want 1", best.Correlation)
	}
}

func TestCorrelateBucketsOmitsSmallBuckets(t *testing.T) {
	e, _ := NewCorrelationEngine(3, 30*time.Minute)
	tgt := retSeries(t0, time.Minute, 0.01, -0.02) // only 2 points in 09:30
	cnd := retSeries(t0, time.Minute, 0.02, -0.01)
	results := e.CorrelateBuckets("TSLA", "TSLL", tgt, cnd, nil)
	if len(results) != 0 {
		t.Fatalf("buckets below the floor must be omitted, got %d results", len(results))
	}
}

func TestBucketLabel(t *testing.T) {
	e, _ := NewCorrelationEngine(3, 30*time.Minute)
	ts := time.Date(2025, 3, 3, 9, 47, 12, 0, time.UTC)
	if got := e.BucketLabel(ts); got != "09:30" {
		t.Fatalf("BucketLabel = %s, want 09:30", got)
	}
	ts = time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC)
	if got := e.BucketLabel(ts); got != "16:00" {
		t.Fatalf("BucketLabel = %s, want 16:00", got)
	}
}

func sortReturns(ps []models.ReturnPoint) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j].Timestamp.Before(ps[j-1].Timestamp); j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}
