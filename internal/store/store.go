package store

import (
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"districtpulse/pkg/contracts/domain"
)

// Snapshot is one fully-built generation of the district store together with
// the quality counters of the ingestion cycle that produced it. A snapshot
// is immutable after installation; readers hold it by pointer and are never
// affected by later rebuilds.
type Snapshot struct {
	Districts map[string]domain.DistrictEntry
	Quality   domain.QualityMetrics
}

// EmptySnapshot returns the zero-district snapshot the store starts with.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Districts: map[string]domain.DistrictEntry{}}
}

// Store holds the current snapshot behind an atomic pointer. Reads take the
// pointer once and work against a consistent generation; Replace swaps the
// whole generation in a single store. No locks are needed because snapshots
// are never mutated in place.
type Store struct {
	snap   atomic.Pointer[Snapshot]
	logger *slog.Logger
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger.With(slog.String("component", "district_store"))}
	s.snap.Store(EmptySnapshot())
	return s
}

// Replace installs snap as the current generation.
func (s *Store) Replace(snap *Snapshot) {
	s.snap.Store(snap)
	s.logger.Info("district store replaced",
		slog.Int("districts", len(snap.Districts)),
		slog.Int("total_rows", snap.Quality.TotalRows),
		slog.Float64("completeness", snap.Quality.CompletenessScore))
}

// Current returns the snapshot in effect right now.
func (s *Store) Current() *Snapshot {
	return s.snap.Load()
}

// District looks up one district in the current snapshot.
func (s *Store) District(id string) (domain.DistrictEntry, bool) {
	entry, ok := s.Current().Districts[id]
	return entry, ok
}

// List returns the districts of the current snapshot, optionally filtered by
// state name (case-insensitive), sorted by district id.
func (s *Store) List(stateFilter string) []domain.DistrictRef {
	snap := s.Current()
	refs := make([]domain.DistrictRef, 0, len(snap.Districts))
	for id, entry := range snap.Districts {
		if stateFilter != "" && !strings.EqualFold(entry.Latest.StateName, stateFilter) {
			continue
		}
		refs = append(refs, domain.DistrictRef{ID: id, DisplayName: entry.Latest.DistrictName})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// Quality returns the counters of the cycle that built the current snapshot.
func (s *Store) Quality() domain.QualityMetrics {
	return s.Current().Quality
}

// Len reports how many districts the current snapshot holds.
func (s *Store) Len() int {
	return len(s.Current().Districts)
}
