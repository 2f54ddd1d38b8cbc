package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/pkg/contracts/domain"
)

func TestClassifyEmployment(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		name      string
		value     float64
		wantLabel string
		wantColor string
	}{
		{name: "above high cutoff", value: 150000, wantLabel: "High Availability", wantColor: ColorGood},
		{name: "exactly at high cutoff takes lower tier", value: 100000, wantLabel: "Moderate Availability", wantColor: ColorWarn},
		{name: "mid band", value: 60000, wantLabel: "Moderate Availability", wantColor: ColorWarn},
		{name: "low band", value: 1200, wantLabel: "Low Availability", wantColor: ColorBad},
		{name: "zero takes the lowest tier", value: 0, wantLabel: "Low Availability", wantColor: ColorBad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			badge, err := engine.Classify(MetricEmployment, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, badge.Label)
			assert.Equal(t, tt.wantColor, badge.Color)
		})
	}
}

func TestClassifyPaymentSpeed(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		name      string
		value     float64
		wantLabel string
	}{
		{name: "excellent", value: 95, wantLabel: "Excellent"},
		{name: "boundary at 90 falls to good", value: 90, wantLabel: "Good"},
		{name: "good", value: 80, wantLabel: "Good"},
		{name: "average", value: 60, wantLabel: "Average"},
		{name: "poor", value: 30, wantLabel: "Poor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			badge, err := engine.Classify(MetricPaymentSpeed, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, badge.Label)
		})
	}
}

func TestClassifyUnknownMetric(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	_, err := engine.Classify("rainfall", 10)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{name: "lakh scale", value: 145000, want: "1.45 Lakh"},
		{name: "exactly one lakh", value: 100000, want: "1.00 Lakh"},
		{name: "thousand scale", value: 1500, want: "1.50 K"},
		{name: "exactly one thousand", value: 1000, want: "1.00 K"},
		{name: "below thousand prints integer", value: 500, want: "500"},
		{name: "fraction truncates to integer", value: 999.9, want: "999"},
		{name: "zero", value: 0, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Format(tt.value))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	assert.Equal(t, "87.5%", engine.FormatPercent(87.5))
	assert.Equal(t, "0.0%", engine.FormatPercent(0))
	assert.Equal(t, "100.0%", engine.FormatPercent(100))
}

func TestUnavailableBadge(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	badge := engine.UnavailableBadge()
	assert.Equal(t, "Data Not Available", badge.Label)
	assert.Equal(t, ColorNeutral, badge.Color)
}

func TestCompare(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	above := engine.Compare(120, 100)
	assert.Equal(t, "Above State Average", above.Label)

	below := engine.Compare(90, 100)
	assert.Equal(t, "Below State Average", below.Label)

	equal := engine.Compare(100, 100)
	assert.Equal(t, "Below State Average", equal.Label)
}

func TestClassifyCustomConfig(t *testing.T) {
	cfg := Config{
		Tiers: map[string][]Tier{
			"custom": {
				{Threshold: 10, Label: "big", Color: "#000"},
				{Threshold: 0, Label: "small", Color: "#fff"},
			},
		},
		Unavailable: domain.TierBadge{Label: "none"},
	}
	engine := NewEngine(cfg)

	badge, err := engine.Classify("custom", 11)
	require.NoError(t, err)
	assert.Equal(t, "big", badge.Label)

	badge, err = engine.Classify("custom", -5)
	require.NoError(t, err)
	assert.Equal(t, "small", badge.Label)
}
