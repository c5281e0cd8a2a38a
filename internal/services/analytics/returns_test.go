package analytics

import (
	"errors"
	"testing"
	"time"

	"TypoTrade/internal/domain/models"
)

var t0 = time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)

func dailyBars(closes ...float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Timestamp: t0.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestComputeReturns(t *testing.T) {
	rets, err := ComputeReturns(dailyBars(100, 110, 99))
	if err != nil {
		t.Fatalf("ComputeReturns: %v", err)
	}
	if len(rets) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(rets))
	}
	if rets[0].Value != 0.10 {
		t.Fatalf("first return = %v, want 0.10", rets[0].Value)
	}
	if rets[0].Timestamp != t0.AddDate(0, 0, 1) {
		t.Fatalf("return carries wrong timestamp %v", rets[0].Timestamp)
	}
	if rets[1].Value != -0.10 {
		t.Fatalf("second return = %v, want -0.10", rets[1].Value)
	}
}

func TestComputeReturnsRejectsNonMonotonic(t *testing.T) {
	bars := dailyBars(100, 110, 99)
	bars[2].Timestamp = bars[0].Timestamp
	if _, err := ComputeReturns(bars); !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("expected ErrNonMonotonic, got %v", err)
	}

	bars = dailyBars(100, 110)
	bars[1].Timestamp = bars[0].Timestamp // duplicate
	if _, err := ComputeReturns(bars); !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("duplicates must be rejected, got %v", err)
	}
}

func TestAlignReturnsInnerJoin(t *testing.T) {
	target := []models.ReturnPoint{
		{Timestamp: t0, Value: 1},
		{Timestamp: t0.Add(time.Minute), Value: 2},
		{Timestamp: t0.Add(3 * time.Minute), Value: 3},
	}
	candidate := []models.ReturnPoint{
		{Timestamp: t0.Add(time.Minute), Value: 20},
		{Timestamp: t0.Add(2 * time.Minute), Value: 30},
		{Timestamp: t0.Add(3 * time.Minute), Value: 40},
	}
	ts, tv, cv := AlignReturns(target, candidate)
	if len(ts) != 2 || len(tv) != 2 || len(cv) != 2 {
		t.Fatalf("expected 2 aligned points, got %d", len(ts))
	}
	if tv[0] != 2 || cv[0] != 20 {
		t.Fatalf("first aligned point mismatch: %v %v", tv[0], cv[0])
	}
	if tv[1] != 3 || cv[1] != 40 {
		t.Fatalf("second aligned point mismatch: %v %v", tv[1], cv[1])
	}
}
