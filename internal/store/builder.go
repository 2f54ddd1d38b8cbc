package store

import (
	"log/slog"
	"sort"

	"districtpulse/internal/validation"
	"districtpulse/pkg/contracts/domain"
)

// BuildSnapshot turns a full snapshot of raw rows into a new store
// generation. Rejected rows are dropped, warned rows are kept with their
// defaults, and the quality counters for the whole cycle are computed here
// so the snapshot and its metrics always travel together.
//
// Building never touches the live store; the caller installs the result via
// Store.Replace once the cycle has fully succeeded.
func BuildSnapshot(rows []domain.RawRecord, v *validation.RowValidator, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}

	var metrics domain.QualityMetrics
	groups := make(map[string][]domain.Record)

	for _, raw := range rows {
		rec, outcome := v.Validate(raw, &metrics)
		if !outcome.Accepted {
			continue
		}
		groups[rec.DistrictID] = append(groups[rec.DistrictID], rec)
	}

	districts := make(map[string]domain.DistrictEntry, len(groups))
	for id, recs := range groups {
		// Most recent period first. Period tokens sort lexically.
		sort.Slice(recs, func(i, j int) bool { return recs[i].Period > recs[j].Period })
		districts[id] = buildEntry(recs)
	}

	metrics.Recompute()

	logger.Info("snapshot built",
		slog.Int("rows", metrics.TotalRows),
		slog.Int("districts", len(districts)),
		slog.Int("rejected", metrics.InvalidRows),
		slog.Float64("completeness", metrics.CompletenessScore))

	return &Snapshot{Districts: districts, Quality: metrics}
}

// buildEntry reduces one district's records (most recent first) to its
// latest record plus the fixed-length employment series. Fewer than
// HistoryLength periods pad by repeating the last available value.
func buildEntry(recs []domain.Record) domain.DistrictEntry {
	entry := domain.DistrictEntry{Latest: recs[0]}

	var last float64
	for i := 0; i < domain.HistoryLength; i++ {
		if i < len(recs) {
			last = recs[i].EmployedCount
		}
		entry.History[i] = last
	}
	return entry
}
