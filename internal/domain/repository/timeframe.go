package repository

// Timeframe represents bar resolution.
type Timeframe string

const (
	TF1m Timeframe = "1m"
	TF1d Timeframe = "1d"
)
