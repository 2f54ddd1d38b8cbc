package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"districtpulse/internal/services"
	"districtpulse/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockEngineService is a hand-rolled mock of the engine facade.
type mockEngineService struct {
	rebuildMetrics domain.QualityMetrics
	rebuildErr     error
	entries        map[string]domain.DistrictEntry
	refs           []domain.DistrictRef
	payload        domain.DisplayPayload
	payloadErr     error
	quality        domain.QualityMetrics
	alert          bool
	trend          float64
	trendErr       error
	forecast       float64
	forecastErr    error
	anomalous      bool
	anomalyErr     error
	category       string
	categoryErr    error
	clusters       map[int][]string
	clustersErr    error

	anomalyValue float64
}

func (m *mockEngineService) RebuildFromSource(ctx context.Context) (domain.QualityMetrics, error) {
	return m.rebuildMetrics, m.rebuildErr
}

func (m *mockEngineService) District(id string) (domain.DistrictEntry, error) {
	entry, ok := m.entries[id]
	if !ok {
		return domain.DistrictEntry{}, services.ErrDistrictNotFound
	}
	return entry, nil
}

func (m *mockEngineService) ListDistricts(stateFilter string) []domain.DistrictRef {
	return m.refs
}

func (m *mockEngineService) DisplayPayload(ctx context.Context, id string) (domain.DisplayPayload, error) {
	if _, ok := m.entries[id]; !ok {
		return domain.DisplayPayload{}, services.ErrDistrictNotFound
	}
	return m.payload, m.payloadErr
}

func (m *mockEngineService) Quality() domain.QualityMetrics { return m.quality }
func (m *mockEngineService) ShouldAlert() bool              { return m.alert }

func (m *mockEngineService) PredictTrend(id string) (float64, error) { return m.trend, m.trendErr }
func (m *mockEngineService) Forecast(id string) (float64, error)     { return m.forecast, m.forecastErr }

func (m *mockEngineService) DetectAnomaly(id string, value float64) (bool, error) {
	m.anomalyValue = value
	return m.anomalous, m.anomalyErr
}

func (m *mockEngineService) Category(id string) (string, error) { return m.category, m.categoryErr }

func (m *mockEngineService) Clusters() (map[int][]string, error) { return m.clusters, m.clustersErr }

func knownEntry() domain.DistrictEntry {
	return domain.DistrictEntry{
		Latest: domain.Record{
			DistrictID:    "RJ-JP",
			DistrictName:  "Jaipur",
			StateName:     "Rajasthan",
			Period:        "2026-07",
			EmployedCount: 145000,
		},
		History: [domain.HistoryLength]float64{145000, 140000, 130000, 120000, 110000, 100000},
	}
}

func serveDistricts(t *testing.T, svc EngineService, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewDistrictHandler(svc, discardLogger())
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)
	return rec
}

func TestListDistricts(t *testing.T) {
	svc := &mockEngineService{refs: []domain.DistrictRef{
		{ID: "RJ-JD", DisplayName: "Jodhpur"},
		{ID: "RJ-JP", DisplayName: "Jaipur"},
	}}

	rec := serveDistricts(t, svc, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Districts []domain.DistrictRef `json:"districts"`
		Count     int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "RJ-JD", body.Districts[0].ID)
}

func TestGetDistrict(t *testing.T) {
	svc := &mockEngineService{entries: map[string]domain.DistrictEntry{"RJ-JP": knownEntry()}}

	t.Run("known district", func(t *testing.T) {
		rec := serveDistricts(t, svc, http.MethodGet, "/RJ-JP")

		require.Equal(t, http.StatusOK, rec.Code)
		var entry domain.DistrictEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
		assert.Equal(t, "Jaipur", entry.Latest.DistrictName)
		assert.Equal(t, 145000.0, entry.History[0])
	})

	t.Run("unknown district answers 404", func(t *testing.T) {
		rec := serveDistricts(t, svc, http.MethodGet, "/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetDisplayPayload(t *testing.T) {
	svc := &mockEngineService{
		entries: map[string]domain.DistrictEntry{"RJ-JP": knownEntry()},
		payload: domain.DisplayPayload{
			District: domain.DistrictRef{ID: "RJ-JP", DisplayName: "Jaipur"},
			Employment: domain.MetricDisplay{
				Value:   145000,
				Display: "1.45 Lakh",
				Badge:   domain.TierBadge{Label: "High Availability", Color: "#2e7d32"},
			},
		},
	}

	rec := serveDistricts(t, svc, http.MethodGet, "/RJ-JP/display")

	require.Equal(t, http.StatusOK, rec.Code)
	var payload domain.DisplayPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "1.45 Lakh", payload.Employment.Display)
	assert.Equal(t, "High Availability", payload.Employment.Badge.Label)
}

func TestGetInsights(t *testing.T) {
	t.Run("all estimators available", func(t *testing.T) {
		svc := &mockEngineService{
			entries:  map[string]domain.DistrictEntry{"RJ-JP": knownEntry()},
			trend:    150000,
			forecast: 138000,
			category: "Fast Progress",
		}

		rec := serveDistricts(t, svc, http.MethodGet, "/RJ-JP/insights")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			DistrictID string                     `json:"district_id"`
			Insights   map[string]estimatorResult `json:"insights"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "RJ-JP", body.DistrictID)
		assert.True(t, body.Insights["trend"].Available)
		assert.Equal(t, 150000.0, body.Insights["trend"].Result)
		assert.Equal(t, "Fast Progress", body.Insights["category"].Result)
		// Anomaly checks default to the latest employment figure.
		assert.Equal(t, 145000.0, svc.anomalyValue)
	})

	t.Run("unavailable estimator still answers 200", func(t *testing.T) {
		svc := &mockEngineService{
			entries:  map[string]domain.DistrictEntry{"RJ-JP": knownEntry()},
			trendErr: services.ErrInsufficientHistory,
		}

		rec := serveDistricts(t, svc, http.MethodGet, "/RJ-JP/insights")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Insights map[string]estimatorResult `json:"insights"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Insights["trend"].Available)
		assert.NotEmpty(t, body.Insights["trend"].Reason)
		assert.True(t, body.Insights["forecast"].Available)
	})

	t.Run("explicit anomaly value", func(t *testing.T) {
		svc := &mockEngineService{entries: map[string]domain.DistrictEntry{"RJ-JP": knownEntry()}}

		rec := serveDistricts(t, svc, http.MethodGet, "/RJ-JP/insights?value=99000")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 99000.0, svc.anomalyValue)
	})

	t.Run("bad anomaly value answers 400", func(t *testing.T) {
		svc := &mockEngineService{entries: map[string]domain.DistrictEntry{"RJ-JP": knownEntry()}}

		rec := serveDistricts(t, svc, http.MethodGet, "/RJ-JP/insights?value=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetClusters(t *testing.T) {
	t.Run("clusters available", func(t *testing.T) {
		svc := &mockEngineService{clusters: map[int][]string{
			0: {"RJ-JP"},
			1: nil,
			2: {"RJ-JD"},
		}}

		rec := serveDistricts(t, svc, http.MethodGet, "/clusters")

		require.Equal(t, http.StatusOK, rec.Code)
		var body estimatorResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Available)
	})

	t.Run("gated off answers 200 unavailable", func(t *testing.T) {
		svc := &mockEngineService{clustersErr: services.ErrEstimatorUnavailable}

		rec := serveDistricts(t, svc, http.MethodGet, "/clusters")

		require.Equal(t, http.StatusOK, rec.Code)
		var body estimatorResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Available)
	})
}
