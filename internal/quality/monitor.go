package quality

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"districtpulse/pkg/contracts/domain"
)

const meterName = "districtpulse.quality"

// AlertThreshold is the completeness score below which a cycle should alert.
const AlertThreshold = 80.0

// Monitor keeps the quality counters of the most recent ingestion cycle and
// exposes the alert predicate. Delivery of alerts (logging, paging) is the
// caller's concern; the monitor only answers whether one is warranted.
type Monitor struct {
	latest atomic.Pointer[domain.QualityMetrics]
	logger *slog.Logger

	totalRows    metric.Int64Gauge
	validRows    metric.Int64Gauge
	invalidRows  metric.Int64Gauge
	completeness metric.Float64Gauge
}

// NewMonitor creates a monitor with zeroed counters and registers its
// instruments on the global meter.
func NewMonitor(logger *slog.Logger) (*Monitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{logger: logger.With(slog.String("component", "quality_monitor"))}
	m.latest.Store(&domain.QualityMetrics{})

	meter := otel.Meter(meterName)

	var err error
	if m.totalRows, err = meter.Int64Gauge(
		"ingest_rows_total",
		metric.WithDescription("Rows seen in the latest ingestion cycle"),
	); err != nil {
		return nil, err
	}
	if m.validRows, err = meter.Int64Gauge(
		"ingest_rows_valid",
		metric.WithDescription("Rows accepted in the latest ingestion cycle"),
	); err != nil {
		return nil, err
	}
	if m.invalidRows, err = meter.Int64Gauge(
		"ingest_rows_invalid",
		metric.WithDescription("Rows rejected in the latest ingestion cycle"),
	); err != nil {
		return nil, err
	}
	if m.completeness, err = meter.Float64Gauge(
		"ingest_completeness_score",
		metric.WithDescription("Completeness percentage of the latest ingestion cycle"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Publish replaces the monitored counters with the ones from a freshly
// completed cycle and mirrors them to the meter.
func (m *Monitor) Publish(ctx context.Context, metrics domain.QualityMetrics) {
	m.latest.Store(&metrics)

	m.totalRows.Record(ctx, int64(metrics.TotalRows))
	m.validRows.Record(ctx, int64(metrics.ValidRows))
	m.invalidRows.Record(ctx, int64(metrics.InvalidRows))
	m.completeness.Record(ctx, metrics.CompletenessScore)

	if m.shouldAlert(metrics) {
		m.logger.Warn("data completeness below threshold",
			slog.Float64("completeness", metrics.CompletenessScore),
			slog.Float64("threshold", AlertThreshold))
	}
}

// Summarize returns a read-only copy of the latest cycle's counters.
func (m *Monitor) Summarize() domain.QualityMetrics {
	return *m.latest.Load()
}

// ShouldAlert reports whether the latest cycle's completeness fell below
// the alert threshold.
func (m *Monitor) ShouldAlert() bool {
	return m.shouldAlert(*m.latest.Load())
}

func (m *Monitor) shouldAlert(metrics domain.QualityMetrics) bool {
	return metrics.CompletenessScore < AlertThreshold
}
