package models

// Requests for the study HTTP endpoints. Defined in domain for consistency
// and reuse.

type PairsRequest struct {
	Target          string `query:"target" json:"target"`
	IncludeExcluded bool   `query:"include_excluded" json:"include_excluded" default:"false"`
	Limit           int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}

type CorrelationsRequest struct {
	Target    string `query:"target" json:"target" validate:"required"`
	Candidate string `query:"candidate" json:"candidate"`
	Scope     string `query:"scope" json:"scope" default:"baseline" validate:"oneof=baseline high_volume buying_pressure time_bucket best_time"`
	Limit     int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type BacktestsRequest struct {
	Target string `query:"target" json:"target"`
	Limit  int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type IPOEventsRequest struct {
	MinSpikeRatio float64 `query:"min_spike_ratio" json:"min_spike_ratio" default:"1.0" validate:"gte=0"`
	Limit         int     `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}
