package domain

// HistoryLength is the fixed number of recent-period employment values kept
// per district. Shorter series are padded by repeating the most recent known
// value so consumers never have to branch on series length.
const HistoryLength = 6

// RawRecord is one reporting-period row for one district, exactly as it came
// from the ingestion source. Numeric metrics are kept as raw strings here:
// sources routinely deliver blanks, "NA" markers and garbled numbers, and the
// decision of what to do with those belongs to the validator, not the loader.
type RawRecord struct {
	DistrictID   string `json:"district_id" csv:"DistrictID"`
	DistrictName string `json:"district_name" csv:"DistrictName"`
	StateName    string `json:"state_name" csv:"StateName"`

	// Period is a sortable reporting-interval token, e.g. "2025-07".
	// Lexical ordering of periods is chronological ordering.
	Period string `json:"period" csv:"Period"`

	EmployedCount       string `json:"employed_count" csv:"EmployedCount"`
	PaymentSpeedPct     string `json:"payment_speed_pct" csv:"PaymentSpeedPct"`
	HouseholdsBenefited string `json:"households_benefited" csv:"HouseholdsBenefited"`
	WagesPaid           string `json:"wages_paid" csv:"WagesPaid"`
}

// Record is a RawRecord after validation: identifiers trimmed, every numeric
// metric parsed to a finite float64 or substituted with its default.
type Record struct {
	DistrictID   string `json:"district_id"`
	DistrictName string `json:"district_name"`
	StateName    string `json:"state_name"`
	Period       string `json:"period"`

	EmployedCount       float64 `json:"employed_count"`
	PaymentSpeedPct     float64 `json:"payment_speed_pct"`
	HouseholdsBenefited float64 `json:"households_benefited"`
	WagesPaid           float64 `json:"wages_paid"`
}

// DistrictEntry is the derived per-district view the engine serves from:
// the most recent validated record plus a fixed-length employment series.
type DistrictEntry struct {
	// Latest is the record from the most recent reporting period.
	Latest Record `json:"latest"`

	// History holds the last HistoryLength employment values,
	// most-recent-first. History[0] matches Latest.EmployedCount whenever
	// that value was available.
	History [HistoryLength]float64 `json:"history"`
}

// ChronologicalHistory returns the history series oldest-first, which is the
// ordering every estimator works in.
func (e DistrictEntry) ChronologicalHistory() []float64 {
	out := make([]float64, HistoryLength)
	for i, v := range e.History {
		out[HistoryLength-1-i] = v
	}
	return out
}

// DistrictRef is the list-view projection of a district.
type DistrictRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// QualityMetrics are the per-ingestion-cycle data quality counters. They are
// recomputed in full on every rebuild, never accumulated across cycles.
type QualityMetrics struct {
	TotalRows        int `json:"total_rows"`
	ValidRows        int `json:"valid_rows"`
	InvalidRows      int `json:"invalid_rows"`
	SkippedDistricts int `json:"skipped_districts"`

	// CompletenessScore is ValidRows/TotalRows as a percentage.
	// An empty cycle scores 0, not NaN.
	CompletenessScore float64 `json:"completeness_score"`
}

// Recompute refreshes CompletenessScore from the row counters.
func (m *QualityMetrics) Recompute() {
	if m.TotalRows == 0 {
		m.CompletenessScore = 0
		return
	}
	m.CompletenessScore = float64(m.ValidRows) / float64(m.TotalRows) * 100
}
