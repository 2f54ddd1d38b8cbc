package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"districtpulse/internal/analytics"
	"districtpulse/internal/ingest"
	"districtpulse/internal/quality"
	"districtpulse/internal/rules"
	"districtpulse/internal/store"
	"districtpulse/internal/validation"
	"districtpulse/pkg/contracts/domain"
)

const tracerName = "districtpulse.engine"

// Notifier receives engine lifecycle events. The websocket hub implements
// it for dashboard clients; tests use the no-op default.
type Notifier interface {
	SnapshotRebuilt(metrics domain.QualityMetrics, districts int)
	QualityAlert(metrics domain.QualityMetrics)
}

type noopNotifier struct{}

func (noopNotifier) SnapshotRebuilt(domain.QualityMetrics, int) {}
func (noopNotifier) QualityAlert(domain.QualityMetrics)         {}

// EngineService is the facade over the transformation engine: full-snapshot
// ingestion, district lookups, display payload assembly and the estimator
// queries. HTTP handlers and CLIs talk to the engine only through it.
type EngineService struct {
	store     *store.Store
	validator *validation.RowValidator
	rules     *rules.Engine
	analytics *analytics.Engine
	monitor   *quality.Monitor
	source    ingest.RowSource
	notifier  Notifier
	logger    *slog.Logger
	tracer    trace.Tracer

	// rebuildMu serializes ingestion cycles; reads never take it.
	rebuildMu sync.Mutex
}

// NewEngineService wires the engine together. source may be nil when the
// caller only ever pushes rows via Rebuild; notifier may be nil.
func NewEngineService(
	st *store.Store,
	v *validation.RowValidator,
	ruleEngine *rules.Engine,
	analyticsEngine *analytics.Engine,
	monitor *quality.Monitor,
	source ingest.RowSource,
	notifier Notifier,
	logger *slog.Logger,
) *EngineService {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &EngineService{
		store:     st,
		validator: v,
		rules:     ruleEngine,
		analytics: analyticsEngine,
		monitor:   monitor,
		source:    source,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "engine_service")),
		tracer:    otel.Tracer(tracerName),
	}
}

// Rebuild replaces the district store from a full snapshot of raw rows.
// The swap is atomic: concurrent readers keep the generation they started
// with, and a failed cycle never leaves a half-built store behind.
func (s *EngineService) Rebuild(ctx context.Context, rows []domain.RawRecord) (domain.QualityMetrics, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	cycleID := uuid.New().String()
	ctx, span := s.tracer.Start(ctx, "engine.rebuild",
		trace.WithAttributes(
			attribute.String("cycle_id", cycleID),
			attribute.Int("rows", len(rows)),
		))
	defer span.End()

	s.logger.InfoContext(ctx, "ingestion cycle started",
		slog.String("cycle_id", cycleID),
		slog.Int("rows", len(rows)))

	snap := store.BuildSnapshot(rows, s.validator, s.logger)
	s.store.Replace(snap)
	s.monitor.Publish(ctx, snap.Quality)

	s.notifier.SnapshotRebuilt(snap.Quality, len(snap.Districts))
	if s.monitor.ShouldAlert() {
		s.notifier.QualityAlert(snap.Quality)
	}

	s.logger.InfoContext(ctx, "ingestion cycle completed",
		slog.String("cycle_id", cycleID),
		slog.Int("districts", len(snap.Districts)),
		slog.Float64("completeness", snap.Quality.CompletenessScore))

	return snap.Quality, nil
}

// RebuildFromSource pulls a fresh snapshot from the configured row source.
// A source failure propagates to the caller and leaves the current store
// generation untouched.
func (s *EngineService) RebuildFromSource(ctx context.Context) (domain.QualityMetrics, error) {
	if s.source == nil {
		return domain.QualityMetrics{}, fmt.Errorf("%w: no row source configured", ErrSourceUnavailable)
	}

	rows, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "row source fetch failed",
			slog.String("error", err.Error()))
		return domain.QualityMetrics{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return s.Rebuild(ctx, rows)
}

// District returns the stored entry for one district id.
func (s *EngineService) District(id string) (domain.DistrictEntry, error) {
	entry, ok := s.store.District(id)
	if !ok {
		return domain.DistrictEntry{}, ErrDistrictNotFound
	}
	return entry, nil
}

// ListDistricts returns id and display name for every stored district,
// optionally filtered by state name.
func (s *EngineService) ListDistricts(stateFilter string) []domain.DistrictRef {
	return s.store.List(stateFilter)
}

// Quality returns the counters of the latest ingestion cycle.
func (s *EngineService) Quality() domain.QualityMetrics {
	return s.monitor.Summarize()
}

// ShouldAlert reports whether the latest cycle's completeness warrants an
// alert.
func (s *EngineService) ShouldAlert() bool {
	return s.monitor.ShouldAlert()
}

// DisplayPayload assembles the display-ready view of one district: tier
// badges, formatted magnitudes, the chronological history series and the
// estimator insights. Imputation runs only where the raw value is missing
// or zero.
func (s *EngineService) DisplayPayload(ctx context.Context, id string) (domain.DisplayPayload, error) {
	_, span := s.tracer.Start(ctx, "engine.display_payload",
		trace.WithAttributes(attribute.String("district_id", id)))
	defer span.End()

	entry, ok := s.store.District(id)
	if !ok {
		return domain.DisplayPayload{}, ErrDistrictNotFound
	}

	history := entry.ChronologicalHistory()
	payload := domain.DisplayPayload{
		District: domain.DistrictRef{ID: id, DisplayName: entry.Latest.DistrictName},
		State:    entry.Latest.StateName,
		Period:   entry.Latest.Period,
		History:  history,
	}

	payload.Employment = s.employmentDisplay(entry.Latest.EmployedCount, history)
	payload.PaymentSpeed = s.paymentSpeedDisplay(entry.Latest.PaymentSpeedPct)
	payload.Households = domain.MetricDisplay{
		Value:   entry.Latest.HouseholdsBenefited,
		Display: s.rules.Format(entry.Latest.HouseholdsBenefited),
	}
	payload.Wages = domain.MetricDisplay{
		Value:   entry.Latest.WagesPaid,
		Display: s.rules.Format(entry.Latest.WagesPaid),
	}

	payload.Insights = s.insights(entry, payload.Employment.Value)
	return payload, nil
}

// employmentDisplay prepares the employment metric, imputing a trend-based
// estimate when the raw figure is missing or zero.
func (s *EngineService) employmentDisplay(raw float64, history []float64) domain.MetricDisplay {
	value := raw
	imputed := false
	if value == 0 {
		predicted, ok := s.analytics.PredictTrend(history)
		if !ok {
			return domain.MetricDisplay{Display: "N/A", Badge: s.rules.UnavailableBadge()}
		}
		value = predicted
		imputed = true
	}

	badge, err := s.rules.Classify(rules.MetricEmployment, value)
	if err != nil {
		badge = s.rules.UnavailableBadge()
	}
	return domain.MetricDisplay{
		Value:   value,
		Display: s.rules.Format(value),
		Badge:   badge,
		Imputed: imputed,
	}
}

// paymentSpeedDisplay prepares the payment-speed metric. There is no
// history series for it, so a missing value stays unavailable instead of
// being imputed.
func (s *EngineService) paymentSpeedDisplay(raw float64) domain.MetricDisplay {
	if raw == 0 {
		return domain.MetricDisplay{Display: "N/A", Badge: s.rules.UnavailableBadge()}
	}
	badge, err := s.rules.Classify(rules.MetricPaymentSpeed, raw)
	if err != nil {
		badge = s.rules.UnavailableBadge()
	}
	return domain.MetricDisplay{
		Value:   raw,
		Display: s.rules.FormatPercent(raw),
		Badge:   badge,
	}
}

// insights runs the per-district estimators over the chronological history.
func (s *EngineService) insights(entry domain.DistrictEntry, employment float64) domain.Insights {
	history := entry.ChronologicalHistory()
	var out domain.Insights

	if predicted, ok := s.analytics.PredictTrend(history); ok {
		out.TrendPrediction = &predicted
	}
	if forecast, ok := s.analytics.Forecast(history); ok {
		out.Forecast = &forecast
	}
	if category, ok := s.analytics.Categorize(history, employment); ok {
		out.Category = category
	}
	if anomalous, ok := s.analytics.DetectAnomaly(history, entry.Latest.EmployedCount); ok {
		out.Anomalous = &anomalous
	}
	return out
}

// PredictTrend answers the trend-prediction query for one district.
func (s *EngineService) PredictTrend(id string) (float64, error) {
	entry, err := s.District(id)
	if err != nil {
		return 0, err
	}
	if !s.analytics.Flags().Enabled || !s.analytics.Flags().Trend {
		return 0, ErrEstimatorUnavailable
	}
	predicted, ok := s.analytics.PredictTrend(entry.ChronologicalHistory())
	if !ok {
		return 0, ErrInsufficientHistory
	}
	return predicted, nil
}

// Forecast answers the smoothed-forecast query for one district.
func (s *EngineService) Forecast(id string) (float64, error) {
	entry, err := s.District(id)
	if err != nil {
		return 0, err
	}
	if !s.analytics.Flags().Enabled || !s.analytics.Flags().Forecast {
		return 0, ErrEstimatorUnavailable
	}
	forecast, ok := s.analytics.Forecast(entry.ChronologicalHistory())
	if !ok {
		return 0, ErrInsufficientHistory
	}
	return forecast, nil
}

// DetectAnomaly reports whether value is anomalous against the district's
// history.
func (s *EngineService) DetectAnomaly(id string, value float64) (bool, error) {
	entry, err := s.District(id)
	if err != nil {
		return false, err
	}
	anomalous, ok := s.analytics.DetectAnomaly(entry.ChronologicalHistory(), value)
	if !ok {
		return false, ErrEstimatorUnavailable
	}
	return anomalous, nil
}

// Category answers the payment-progress classification query.
func (s *EngineService) Category(id string) (string, error) {
	entry, err := s.District(id)
	if err != nil {
		return "", err
	}
	category, ok := s.analytics.Categorize(entry.ChronologicalHistory(), entry.Latest.EmployedCount)
	if !ok {
		return "", ErrEstimatorUnavailable
	}
	return category, nil
}

// Clusters partitions every stored district among the performance centroids.
func (s *EngineService) Clusters() (map[int][]string, error) {
	snap := s.store.Current()
	points := make([]analytics.Point, 0, len(snap.Districts))
	for id, entry := range snap.Districts {
		points = append(points, analytics.Point{
			DistrictID:   id,
			Employment:   entry.Latest.EmployedCount,
			PaymentSpeed: entry.Latest.PaymentSpeedPct,
		})
	}

	clusters, ok := s.analytics.Clusters(points)
	if !ok {
		return nil, ErrEstimatorUnavailable
	}
	// Stable order inside each partition for deterministic responses.
	for _, ids := range clusters {
		sort.Strings(ids)
	}
	return clusters, nil
}
