package pipeline

import (
	"sync"

	"github.com/emberwatch/incident-enrich/internal/checkpoint"
	"github.com/emberwatch/incident-enrich/internal/domain"
)

// RunState accumulates the output buffer and quality counters for one
// pipeline invocation. The accumulator is keyed by record ID: re-adding a
// record replaces the earlier result instead of duplicating it, which makes
// reprocessing an interrupted chunk idempotent.
type RunState struct {
	mu        sync.Mutex
	processed int64
	enriched  int64
	rejected  map[string]int64
	index     map[string]int
	records   []domain.EnrichedIncident
}

// NewRunState returns an empty run state.
func NewRunState() *RunState {
	return &RunState{
		rejected: make(map[string]int64),
		index:    make(map[string]int),
	}
}

// Restore rebuilds run state from a checkpoint snapshot.
func Restore(snap checkpoint.Snapshot) *RunState {
	s := NewRunState()
	s.processed = snap.Processed
	s.enriched = snap.Enriched
	for reason, n := range snap.Rejected {
		s.rejected[reason] = n
	}
	for _, rec := range snap.Records {
		s.index[rec.ID] = len(s.records)
		s.records = append(s.records, rec)
	}
	return s
}

// Add appends one record's outcome. A record already present (by ID) is
// replaced and the counters are left untouched, so the totals stay consistent
// under duplicate reprocessing.
func (s *RunState) Add(rec domain.EnrichedIncident, rejectedFlags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[rec.ID]; ok {
		s.records[i] = rec
		return
	}

	s.index[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	s.processed++
	if rec.Enriched() {
		s.enriched++
	}
	for _, f := range rejectedFlags {
		s.rejected[f]++
	}
}

// Counters returns the cumulative totals. The rejected map is a copy.
func (s *RunState) Counters() (processed, enriched int64, rejected map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rejected = make(map[string]int64, len(s.rejected))
	for reason, n := range s.rejected {
		rejected[reason] = n
	}
	return s.processed, s.enriched, rejected
}

// Records returns the accumulated output buffer in first-seen order.
func (s *RunState) Records() []domain.EnrichedIncident {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.EnrichedIncident, len(s.records))
	copy(out, s.records)
	return out
}

// Snapshot captures everything needed to resume after the given chunk.
func (s *RunState) Snapshot(chunkIndex int) checkpoint.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := checkpoint.Snapshot{
		ChunkIndex: chunkIndex,
		SavedAt:    domain.Clock().Now().UTC(),
		Processed:  s.processed,
		Enriched:   s.enriched,
		Rejected:   make(map[string]int64, len(s.rejected)),
		Records:    make([]domain.EnrichedIncident, len(s.records)),
	}
	for reason, n := range s.rejected {
		snap.Rejected[reason] = n
	}
	copy(snap.Records, s.records)
	return snap
}
