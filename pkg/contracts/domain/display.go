package domain

// TierBadge is a classified metric as the dashboard shows it.
type TierBadge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// MetricDisplay is one metric prepared for rendering: the effective numeric
// value, its formatted magnitude string, its tier badge, and whether the
// value was imputed because the raw figure was missing or zero.
type MetricDisplay struct {
	Value   float64   `json:"value"`
	Display string    `json:"display"`
	Badge   TierBadge `json:"badge"`
	Imputed bool      `json:"imputed"`
}

// Insights carries the per-district estimator outputs. Nil pointers mean the
// estimator was disabled or had insufficient data; that is a normal outcome,
// not an error.
type Insights struct {
	TrendPrediction *float64 `json:"trend_prediction,omitempty"`
	Forecast        *float64 `json:"forecast,omitempty"`
	Category        string   `json:"category,omitempty"`
	Anomalous       *bool    `json:"anomalous,omitempty"`
}

// DisplayPayload is the full display-ready view of one district.
type DisplayPayload struct {
	District DistrictRef `json:"district"`
	State    string      `json:"state"`
	Period   string      `json:"period"`

	Employment   MetricDisplay `json:"employment"`
	PaymentSpeed MetricDisplay `json:"payment_speed"`
	Households   MetricDisplay `json:"households"`
	Wages        MetricDisplay `json:"wages"`

	// History is the employment series oldest-first, ready for charting.
	History []float64 `json:"history"`

	Insights Insights `json:"insights"`
}
