package validation

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"districtpulse/pkg/contracts/domain"
)

// Warning records one degraded field: the row stays admitted but the value
// was substituted with a default.
type Warning struct {
	Field      string  `json:"field"`
	Raw        string  `json:"raw"`
	Substitute float64 `json:"substitute"`
}

func (w Warning) String() string {
	return fmt.Sprintf("field %s: invalid value %q, substituted %g", w.Field, w.Raw, w.Substitute)
}

// Outcome is the validator's verdict for one raw row. A row is either
// accepted (possibly with warnings) or rejected with exactly one reason.
type Outcome struct {
	Accepted     bool
	RejectReason string
	Warnings     []Warning
}

// RowValidator checks raw row structure and field plausibility. The only
// fatal defect is a missing district identifier; everything else degrades to
// a default with a warning.
type RowValidator struct {
	logger *slog.Logger
}

// NewRowValidator creates a row validator logging through the given logger.
func NewRowValidator(logger *slog.Logger) *RowValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowValidator{
		logger: logger.With(slog.String("component", "row_validator")),
	}
}

// Validate checks one raw row and, when accepted, returns the cleaned record.
// Counters for the current cycle are tallied into metrics.
func (v *RowValidator) Validate(raw domain.RawRecord, metrics *domain.QualityMetrics) (domain.Record, Outcome) {
	metrics.TotalRows++

	id := strings.TrimSpace(raw.DistrictID)
	if id == "" {
		metrics.InvalidRows++
		metrics.SkippedDistricts++
		v.logger.Error("row rejected",
			slog.String("reason", "empty district id"),
			slog.String("period", raw.Period))
		return domain.Record{}, Outcome{RejectReason: "empty district id"}
	}

	outcome := Outcome{Accepted: true}
	rec := domain.Record{
		DistrictID:   id,
		DistrictName: strings.TrimSpace(raw.DistrictName),
		StateName:    strings.TrimSpace(raw.StateName),
		Period:       strings.TrimSpace(raw.Period),
	}

	if rec.DistrictName == "" {
		rec.DistrictName = id
		v.logger.Warn("district name missing, falling back to id",
			slog.String("district_id", id))
	}

	rec.EmployedCount = v.numeric(id, "employed_count", raw.EmployedCount, 0, &outcome)
	rec.PaymentSpeedPct = v.numeric(id, "payment_speed_pct", raw.PaymentSpeedPct, 0, &outcome)
	rec.HouseholdsBenefited = v.numeric(id, "households_benefited", raw.HouseholdsBenefited, 0, &outcome)
	rec.WagesPaid = v.numeric(id, "wages_paid", raw.WagesPaid, 0, &outcome)

	metrics.ValidRows++
	return rec, outcome
}

// numeric applies the safe-numeric rule to one field and records a warning
// when the default had to be substituted.
func (v *RowValidator) numeric(districtID, field, raw string, def float64, outcome *Outcome) float64 {
	value, ok := SafeNumeric(raw, def)
	if !ok {
		outcome.Warnings = append(outcome.Warnings, Warning{Field: field, Raw: raw, Substitute: def})
		v.logger.Warn("invalid numeric field, substituted default",
			slog.String("district_id", districtID),
			slog.String("field", field),
			slog.String("raw", raw),
			slog.Float64("substitute", def))
	}
	return value
}

// SafeNumeric parses s as a finite number. It returns (parsed, true) on
// success and (def, false) for anything that is empty, unparseable, NaN or
// infinite.
func SafeNumeric(s string, def float64) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return def, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return def, false
	}
	return value, true
}
