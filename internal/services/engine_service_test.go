package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/internal/analytics"
	"districtpulse/internal/ingest"
	"districtpulse/internal/quality"
	"districtpulse/internal/rules"
	"districtpulse/internal/store"
	"districtpulse/internal/validation"
	"districtpulse/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier captures hub notifications for assertions.
type recordingNotifier struct {
	rebuilds []int
	alerts   []domain.QualityMetrics
}

func (n *recordingNotifier) SnapshotRebuilt(metrics domain.QualityMetrics, districts int) {
	n.rebuilds = append(n.rebuilds, districts)
}

func (n *recordingNotifier) QualityAlert(metrics domain.QualityMetrics) {
	n.alerts = append(n.alerts, metrics)
}

func newTestEngine(t *testing.T, source ingest.RowSource, notifier Notifier, flags analytics.Flags) *EngineService {
	t.Helper()
	logger := discardLogger()
	monitor, err := quality.NewMonitor(logger)
	require.NoError(t, err)
	return NewEngineService(
		store.New(logger),
		validation.NewRowValidator(logger),
		rules.NewEngine(rules.DefaultConfig()),
		analytics.NewEngine(flags, nil),
		monitor,
		source,
		notifier,
		logger,
	)
}

func row(id, period string, employed, speed float64) domain.RawRecord {
	return domain.RawRecord{
		DistrictID:      id,
		DistrictName:    "District " + id,
		StateName:       "Testland",
		Period:          period,
		EmployedCount:   fmt.Sprintf("%g", employed),
		PaymentSpeedPct: fmt.Sprintf("%g", speed),
	}
}

func linearRows(id string, values ...float64) []domain.RawRecord {
	rows := make([]domain.RawRecord, 0, len(values))
	for i, v := range values {
		rows = append(rows, row(id, fmt.Sprintf("2026-0%d", i+1), v, 85))
	}
	return rows
}

func TestRebuildInstallsSnapshot(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, nil, notifier, analytics.DefaultFlags())

	metrics, err := engine.Rebuild(context.Background(), []domain.RawRecord{
		row("D1", "2026-07", 145000, 87.5),
		row("D2", "2026-07", 30000, 45),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.TotalRows)
	assert.Equal(t, 2, metrics.ValidRows)
	assert.InDelta(t, 100.0, metrics.CompletenessScore, 1e-9)

	entry, err := engine.District("D1")
	require.NoError(t, err)
	assert.Equal(t, 145000.0, entry.Latest.EmployedCount)

	require.Len(t, notifier.rebuilds, 1)
	assert.Equal(t, 2, notifier.rebuilds[0])
	assert.Empty(t, notifier.alerts, "healthy cycle must not alert")
}

func TestRebuildAlertsOnLowCompleteness(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := newTestEngine(t, nil, notifier, analytics.DefaultFlags())

	// Three of five rows have no district id.
	rows := []domain.RawRecord{
		row("D1", "2026-07", 1000, 80),
		row("D2", "2026-07", 2000, 80),
		{Period: "2026-07"},
		{Period: "2026-07"},
		{Period: "2026-07"},
	}
	metrics, err := engine.Rebuild(context.Background(), rows)
	require.NoError(t, err)

	assert.InDelta(t, 40.0, metrics.CompletenessScore, 1e-9)
	assert.True(t, engine.ShouldAlert())
	require.Len(t, notifier.alerts, 1)
}

func TestRebuildIsIdempotent(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())
	rows := linearRows("D1", 10, 20, 30)

	first, err := engine.Rebuild(context.Background(), rows)
	require.NoError(t, err)
	entryFirst, err := engine.District("D1")
	require.NoError(t, err)

	second, err := engine.Rebuild(context.Background(), rows)
	require.NoError(t, err)
	entrySecond, err := engine.District("D1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, entryFirst, entrySecond)
}

func TestRebuildEmptyInput(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	metrics, err := engine.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, metrics.TotalRows)
	assert.Equal(t, 0.0, metrics.CompletenessScore)
	assert.Empty(t, engine.ListDistricts(""))
}

func TestRebuildFromSource(t *testing.T) {
	t.Run("source rows install", func(t *testing.T) {
		source := ingest.RowSourceFunc(func(ctx context.Context) ([]domain.RawRecord, error) {
			return []domain.RawRecord{row("D1", "2026-07", 5000, 70)}, nil
		})
		engine := newTestEngine(t, source, nil, analytics.DefaultFlags())

		metrics, err := engine.RebuildFromSource(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, metrics.ValidRows)
	})

	t.Run("source failure leaves the store untouched", func(t *testing.T) {
		calls := 0
		source := ingest.RowSourceFunc(func(ctx context.Context) ([]domain.RawRecord, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("disk gone")
			}
			return []domain.RawRecord{row("D1", "2026-07", 5000, 70)}, nil
		})
		engine := newTestEngine(t, source, nil, analytics.DefaultFlags())

		_, err := engine.RebuildFromSource(context.Background())
		require.NoError(t, err)

		_, err = engine.RebuildFromSource(context.Background())
		require.ErrorIs(t, err, ErrSourceUnavailable)

		entry, err := engine.District("D1")
		require.NoError(t, err)
		assert.Equal(t, 5000.0, entry.Latest.EmployedCount)
	})

	t.Run("nil source is unavailable", func(t *testing.T) {
		engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

		_, err := engine.RebuildFromSource(context.Background())
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})
}

func TestDistrictNotFound(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	_, err := engine.District("nowhere")
	assert.ErrorIs(t, err, ErrDistrictNotFound)

	_, err = engine.DisplayPayload(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrDistrictNotFound)

	_, err = engine.PredictTrend("nowhere")
	assert.ErrorIs(t, err, ErrDistrictNotFound)
}

func TestListDistrictsFiltersByState(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	rows := []domain.RawRecord{
		row("D1", "2026-07", 1000, 80),
		row("D2", "2026-07", 2000, 80),
	}
	rows[1].StateName = "Otherland"
	_, err := engine.Rebuild(context.Background(), rows)
	require.NoError(t, err)

	assert.Len(t, engine.ListDistricts(""), 2)

	testland := engine.ListDistricts("testland")
	require.Len(t, testland, 1)
	assert.Equal(t, "D1", testland[0].ID)
}

func TestPredictTrendLinearSeries(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	_, err := engine.Rebuild(context.Background(), linearRows("D1", 10, 20, 30, 40, 50, 60))
	require.NoError(t, err)

	predicted, err := engine.PredictTrend("D1")
	require.NoError(t, err)
	assert.InDelta(t, 70.0, predicted, 1e-9)
}

func TestForecastConstantHistory(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	_, err := engine.Rebuild(context.Background(), linearRows("D1", 5, 5, 5, 5, 5, 5))
	require.NoError(t, err)

	forecast, err := engine.Forecast("D1")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, forecast, 1e-9)
}

func TestEstimatorErrorMapping(t *testing.T) {
	t.Run("gated-off estimator is unavailable", func(t *testing.T) {
		flags := analytics.DefaultFlags()
		flags.Trend = false
		engine := newTestEngine(t, nil, nil, flags)

		_, err := engine.Rebuild(context.Background(), linearRows("D1", 10, 20, 30))
		require.NoError(t, err)

		_, err = engine.PredictTrend("D1")
		assert.ErrorIs(t, err, ErrEstimatorUnavailable)
	})

	t.Run("all-zero history is insufficient", func(t *testing.T) {
		engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

		_, err := engine.Rebuild(context.Background(), linearRows("D1", 0, 0, 0))
		require.NoError(t, err)

		_, err = engine.PredictTrend("D1")
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	})
}

func TestDetectAnomaly(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	_, err := engine.Rebuild(context.Background(), linearRows("D1", 100, 110, 90, 105, 95, 100))
	require.NoError(t, err)

	anomalous, err := engine.DetectAnomaly("D1", 100)
	require.NoError(t, err)
	assert.False(t, anomalous)

	anomalous, err = engine.DetectAnomaly("D1", 100000)
	require.NoError(t, err)
	assert.True(t, anomalous)
}

func TestCategory(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	_, err := engine.Rebuild(context.Background(), linearRows("D1", 80000, 120000, 160000))
	require.NoError(t, err)

	category, err := engine.Category("D1")
	require.NoError(t, err)
	assert.Equal(t, analytics.CategoryFast, category)
}

func TestClusters(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	_, err := engine.Rebuild(context.Background(), []domain.RawRecord{
		row("BIG", "2026-07", 160000, 92),
		row("MID", "2026-07", 58000, 71),
		row("LOW-A", "2026-07", 14000, 38),
		row("LOW-B", "2026-07", 11000, 35),
	})
	require.NoError(t, err)

	clusters, err := engine.Clusters()
	require.NoError(t, err)
	require.Len(t, clusters, 3)

	assert.Equal(t, []string{"BIG"}, clusters[0])
	assert.Equal(t, []string{"MID"}, clusters[1])
	assert.Equal(t, []string{"LOW-A", "LOW-B"}, clusters[2])
}

func TestDisplayPayload(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	raw := row("D1", "2026-07", 145000, 87.5)
	raw.HouseholdsBenefited = "32000"
	raw.WagesPaid = "250000"
	history := linearRows("D1", 100000, 110000, 120000, 130000, 140000)
	_, err := engine.Rebuild(context.Background(), append(history, raw))
	require.NoError(t, err)

	payload, err := engine.DisplayPayload(context.Background(), "D1")
	require.NoError(t, err)

	assert.Equal(t, "D1", payload.District.ID)
	assert.Equal(t, "Testland", payload.State)
	assert.Equal(t, "2026-07", payload.Period)

	assert.Equal(t, "1.45 Lakh", payload.Employment.Display)
	assert.Equal(t, "High Availability", payload.Employment.Badge.Label)
	assert.False(t, payload.Employment.Imputed)

	assert.Equal(t, "87.5%", payload.PaymentSpeed.Display)
	assert.Equal(t, "Good", payload.PaymentSpeed.Badge.Label)

	assert.Equal(t, "32.00 K", payload.Households.Display)
	assert.Equal(t, "2.50 Lakh", payload.Wages.Display)

	require.Len(t, payload.History, domain.HistoryLength)
	require.NotNil(t, payload.Insights.TrendPrediction)
	require.NotNil(t, payload.Insights.Forecast)
	assert.NotEmpty(t, payload.Insights.Category)
}

func TestDisplayPayloadImputesMissingEmployment(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	// Latest period reports zero employment over a clean rising history.
	rows := linearRows("D1", 10000, 20000, 30000, 40000, 50000)
	rows = append(rows, row("D1", "2026-07", 0, 85))
	_, err := engine.Rebuild(context.Background(), rows)
	require.NoError(t, err)

	payload, err := engine.DisplayPayload(context.Background(), "D1")
	require.NoError(t, err)

	assert.True(t, payload.Employment.Imputed)
	assert.Greater(t, payload.Employment.Value, 0.0)
	assert.NotEqual(t, "N/A", payload.Employment.Display)
}

func TestDisplayPayloadNeverImputesPaymentSpeed(t *testing.T) {
	engine := newTestEngine(t, nil, nil, analytics.DefaultFlags())

	_, err := engine.Rebuild(context.Background(), []domain.RawRecord{row("D1", "2026-07", 5000, 0)})
	require.NoError(t, err)

	payload, err := engine.DisplayPayload(context.Background(), "D1")
	require.NoError(t, err)

	assert.Equal(t, "N/A", payload.PaymentSpeed.Display)
	assert.Equal(t, "Data Not Available", payload.PaymentSpeed.Badge.Label)
	assert.False(t, payload.PaymentSpeed.Imputed)
}
