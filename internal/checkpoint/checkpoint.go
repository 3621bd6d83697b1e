// Package checkpoint persists pipeline progress so an interrupted run can
// resume from the last committed chunk instead of starting over.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emberwatch/incident-enrich/internal/domain"
)

const fileName = "checkpoint.json"

// Snapshot is one durable unit of progress: everything accumulated up to and
// including ChunkIndex. Re-running the chunks after ChunkIndex reproduces the
// rest of the run.
type Snapshot struct {
	ChunkIndex int       `json:"chunk_index"`
	SavedAt    time.Time `json:"saved_at"`

	Processed int64            `json:"processed"`
	Enriched  int64            `json:"enriched"`
	Rejected  map[string]int64 `json:"rejected,omitempty"`

	Records []domain.EnrichedIncident `json:"records"`
}

// Store reads and writes snapshots under a single directory. Writes go to a
// temp file first and are renamed into place, so a crash mid-write leaves the
// previous snapshot intact.
type Store struct {
	dir string
}

// NewStore creates the checkpoint directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save atomically replaces the current snapshot.
func (s *Store) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, fileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, fileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// Latest loads the current snapshot. ok is false when no snapshot exists.
func (s *Store) Latest() (Snapshot, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return snap, true, nil
}

// Purge removes the snapshot after a successful run.
func (s *Store) Purge() error {
	err := os.Remove(filepath.Join(s.dir, fileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
