package models

import "time"

// PriceBar is one OHLCV record for a ticker at daily or minute granularity.
type PriceBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

// ReturnPoint is a percentage close-to-close change at a timestamp.
type ReturnPoint struct {
	Timestamp time.Time
	Value     float64
}

// AnomalyEvent marks one evaluable bar of a volume series against its
// rolling baseline.
type AnomalyEvent struct {
	Symbol      string    `json:"symbol"`
	Timestamp   time.Time `json:"timestamp"`
	Volume      float64   `json:"volume"`
	VolumeRatio float64   `json:"volume_ratio"`
	Anomalous   bool      `json:"is_anomalous"`
}
