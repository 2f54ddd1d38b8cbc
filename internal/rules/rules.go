package rules

import (
	"fmt"
	"strconv"

	"districtpulse/pkg/contracts/domain"
)

// Metric names the engine classifies. Unknown names are a caller bug and
// surface as an error from Classify.
const (
	MetricEmployment   = "employment"
	MetricPaymentSpeed = "payment_speed"
)

// Tier is one cut point of a tiered metric: values strictly above Threshold
// fall into this tier unless a higher tier matched first.
type Tier struct {
	Threshold float64 `yaml:"threshold"`
	Label     string  `yaml:"label"`
	Color     string  `yaml:"color"`
}

// Config is the immutable rule configuration handed to the engine at
// construction. It is never mutated at runtime, so a single instance can be
// shared across concurrent readers and tests can build isolated variants.
type Config struct {
	// Tiers maps metric name to its cut points ordered high to low.
	// Values at or below the lowest threshold take the lowest tier.
	Tiers map[string][]Tier

	// LargeUnitCutoff and MediumUnitCutoff drive magnitude formatting.
	LargeUnitCutoff  float64
	MediumUnitCutoff float64
	LargeUnitSuffix  string
	MediumUnitSuffix string

	// Unavailable is the badge substituted when a metric has no data.
	Unavailable domain.TierBadge

	// Comparison decides state-relative better/worse labels. It is an
	// acknowledged placeholder policy, kept swappable on purpose.
	Comparison ComparisonPolicy
}

// ComparisonPolicy maps a district value and its state reference value to a
// binary better/worse badge.
type ComparisonPolicy interface {
	Compare(districtValue, stateValue float64) domain.TierBadge
}

// CutoffComparison is the default comparison policy: better iff the district
// value exceeds the state value by more than the configured margin. The
// margin is a hand-set guess, not a derived statistic.
type CutoffComparison struct {
	Margin float64
}

// Compare implements ComparisonPolicy.
func (c CutoffComparison) Compare(districtValue, stateValue float64) domain.TierBadge {
	if districtValue > stateValue+c.Margin {
		return domain.TierBadge{Label: "Above State Average", Color: ColorGood}
	}
	return domain.TierBadge{Label: "Below State Average", Color: ColorBad}
}

// Dashboard color palette.
const (
	ColorGood    = "#2e7d32"
	ColorWarn    = "#ef6c00"
	ColorBad     = "#c62828"
	ColorNeutral = "#9e9e9e"
)

// DefaultConfig returns the rule configuration the dashboard ships with.
func DefaultConfig() Config {
	return Config{
		Tiers: map[string][]Tier{
			MetricEmployment: {
				{Threshold: 100000, Label: "High Availability", Color: ColorGood},
				{Threshold: 50000, Label: "Moderate Availability", Color: ColorWarn},
				{Threshold: 0, Label: "Low Availability", Color: ColorBad},
			},
			MetricPaymentSpeed: {
				{Threshold: 90, Label: "Excellent", Color: ColorGood},
				{Threshold: 75, Label: "Good", Color: ColorGood},
				{Threshold: 50, Label: "Average", Color: ColorWarn},
				{Threshold: 0, Label: "Poor", Color: ColorBad},
			},
		},
		LargeUnitCutoff:  100000,
		MediumUnitCutoff: 1000,
		LargeUnitSuffix:  "Lakh",
		MediumUnitSuffix: "K",
		Unavailable:      domain.TierBadge{Label: "Data Not Available", Color: ColorNeutral},
		Comparison:       CutoffComparison{Margin: 0},
	}
}

// Engine maps raw numeric values to categorical badges and display strings.
// All methods are pure functions of the configuration plus input.
type Engine struct {
	cfg Config
}

// NewEngine creates a rule engine for the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Classify maps value to the badge of the first tier it exceeds, scanning
// high to low. Callers must handle the no-data case upstream; Classify is
// never invoked for missing or zero values.
func (e *Engine) Classify(metric string, value float64) (domain.TierBadge, error) {
	tiers, ok := e.cfg.Tiers[metric]
	if !ok {
		return domain.TierBadge{}, fmt.Errorf("no tier configuration for metric %q", metric)
	}
	for _, t := range tiers {
		if value > t.Threshold {
			return domain.TierBadge{Label: t.Label, Color: t.Color}, nil
		}
	}
	// At or below the lowest cut point: lowest tier wins.
	last := tiers[len(tiers)-1]
	return domain.TierBadge{Label: last.Label, Color: last.Color}, nil
}

// UnavailableBadge returns the badge for metrics with no usable data.
func (e *Engine) UnavailableBadge() domain.TierBadge {
	return e.cfg.Unavailable
}

// Compare applies the configured state-comparison policy.
func (e *Engine) Compare(districtValue, stateValue float64) domain.TierBadge {
	return e.cfg.Comparison.Compare(districtValue, stateValue)
}

// Format renders a magnitude for display: values at or above the large-unit
// cutoff scale down to two decimals with the large-unit suffix, values at or
// above the medium cutoff likewise, everything else prints as an integer.
func (e *Engine) Format(value float64) string {
	switch {
	case value >= e.cfg.LargeUnitCutoff:
		return fmt.Sprintf("%.2f %s", value/e.cfg.LargeUnitCutoff, e.cfg.LargeUnitSuffix)
	case value >= e.cfg.MediumUnitCutoff:
		return fmt.Sprintf("%.2f %s", value/e.cfg.MediumUnitCutoff, e.cfg.MediumUnitSuffix)
	default:
		return strconv.FormatInt(int64(value), 10)
	}
}

// FormatPercent renders a percentage metric to one decimal place.
func (e *Engine) FormatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
