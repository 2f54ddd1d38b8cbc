package http

import (
	"context"

	"districtpulse/pkg/contracts/domain"
)

// EngineService is the interface the handlers need from the engine facade.
// Narrowing it here keeps handler tests free of the real wiring.
type EngineService interface {
	RebuildFromSource(ctx context.Context) (domain.QualityMetrics, error)
	District(id string) (domain.DistrictEntry, error)
	ListDistricts(stateFilter string) []domain.DistrictRef
	DisplayPayload(ctx context.Context, id string) (domain.DisplayPayload, error)
	Quality() domain.QualityMetrics
	ShouldAlert() bool
	PredictTrend(id string) (float64, error)
	Forecast(id string) (float64, error)
	DetectAnomaly(id string, value float64) (bool, error)
	Category(id string) (string, error)
	Clusters() (map[int][]string, error)
}
