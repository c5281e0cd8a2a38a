package analytics

import (
	"fmt"
	"math"

	"TypoTrade/internal/domain/models"
)

// AnomalyDetector flags sessions whose traded volume breaks out of its
// rolling baseline. Two modes exist: the k-sigma rule used for the
// historical pair study, and the plain ratio rule used for IPO-day events
// where variance estimates are unreliable.
type AnomalyDetector struct {
	Window         int     // rolling baseline length, in bars
	K              float64 // sigma multiplier for the k-sigma rule
	RatioThreshold float64 // volume multiple for the ratio rule
}

// NewAnomalyDetector validates the options up front.
func NewAnomalyDetector(window int, k, ratioThreshold float64) (*AnomalyDetector, error) {
	if window < 2 {
		return nil, fmt.Errorf("rolling window must be >= 2, got %d", window)
	}
	if k <= 0 {
		return nil, fmt.Errorf("sigma multiplier must be > 0, got %v", k)
	}
	if ratioThreshold <= 1 {
		return nil, fmt.Errorf("ratio threshold must be > 1, got %v", ratioThreshold)
	}
	return &AnomalyDetector{Window: window, K: k, RatioThreshold: ratioThreshold}, nil
}

// Detect evaluates every bar with at least Window predecessors against the
// mean + k*sigma of the preceding window (the current bar is not part of
// its own baseline). Bars without enough history are absent from the
// output, not marked non-anomalous.
func (d *AnomalyDetector) Detect(symbol string, bars []models.PriceBar) ([]models.AnomalyEvent, error) {
	return d.detect(symbol, bars, func(v, m, sd float64) bool {
		return v > m+d.K*sd
	})
}

// DetectRatio applies the volume-multiple rule instead of the k-sigma rule.
func (d *AnomalyDetector) DetectRatio(symbol string, bars []models.PriceBar) ([]models.AnomalyEvent, error) {
	return d.detect(symbol, bars, func(v, m, _ float64) bool {
		return m > 0 && v/m > d.RatioThreshold
	})
}

func (d *AnomalyDetector) detect(symbol string, bars []models.PriceBar, flag func(v, mean, sd float64) bool) ([]models.AnomalyEvent, error) {
	if err := ValidateBars(bars); err != nil {
		return nil, err
	}
	if len(bars) <= d.Window {
		return nil, nil
	}

	// running sums over the preceding window
	var sum, sum2 float64
	for i := 0; i < d.Window; i++ {
		v := bars[i].Volume
		sum += v
		sum2 += v * v
	}

	out := make([]models.AnomalyEvent, 0, len(bars)-d.Window)
	n := float64(d.Window)
	for i := d.Window; i < len(bars); i++ {
		m := sum / n
		variance := (sum2 - n*m*m) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		sd := math.Sqrt(variance)

		v := bars[i].Volume
		ratio := 0.0
		if m > 0 {
			ratio = v / m
		}
		out = append(out, models.AnomalyEvent{
			Symbol:      symbol,
			Timestamp:   bars[i].Timestamp,
			Volume:      v,
			VolumeRatio: ratio,
			Anomalous:   flag(v, m, sd),
		})

		// slide the window forward
		old := bars[i-d.Window].Volume
		sum += v - old
		sum2 += v*v - old*old
	}
	return out, nil
}
