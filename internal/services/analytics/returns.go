package analytics

import (
	"errors"
	"fmt"
	"time"

	"TypoTrade/internal/domain/models"
)

// Input validation errors. Malformed series fail fast; they are never
// silently truncated or reordered.
var (
	ErrNonMonotonic     = errors.New("timestamps must be strictly increasing")
	ErrMisalignedSeries = errors.New("series timestamps are misaligned")
)

// ValidateBars checks that a bar sequence has strictly increasing
// timestamps with no duplicates.
func ValidateBars(bars []models.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: index %d (%s) not after %s",
				ErrNonMonotonic, i, bars[i].Timestamp, bars[i-1].Timestamp)
		}
	}
	return nil
}

// ComputeReturns derives percentage close-to-close changes from a bar
// sequence. The result has length len(bars)-1 and each point carries the
// timestamp of the later bar.
func ComputeReturns(bars []models.PriceBar) ([]models.ReturnPoint, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return nil, nil
	}
	out := make([]models.ReturnPoint, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			out = append(out, models.ReturnPoint{Timestamp: bars[i].Timestamp})
			continue
		}
		out = append(out, models.ReturnPoint{
			Timestamp: bars[i].Timestamp,
			Value:     (bars[i].Close - prev) / prev,
		})
	}
	return out, nil
}

// AlignReturns inner-joins two return series by timestamp. Only instants
// present in both series survive. Both inputs must already be in
// increasing timestamp order.
func AlignReturns(target, candidate []models.ReturnPoint) (ts []time.Time, t, c []float64) {
	i, j := 0, 0
	for i < len(target) && j < len(candidate) {
		a, b := target[i].Timestamp, candidate[j].Timestamp
		switch {
		case a.Equal(b):
			ts = append(ts, a)
			t = append(t, target[i].Value)
			c = append(c, candidate[j].Value)
			i++
			j++
		case a.Before(b):
			i++
		default:
			j++
		}
	}
	return ts, t, c
}
