// Package checkpoint persists per-session processing positions. The
// checkpoint file is the single source of truth for how much of each
// transcript has been folded into delivered or queued turns.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/fsx"
)

// Checkpoint records how far a session's transcript has been processed.
type Checkpoint struct {
	// LastLine is the count of raw lines already folded into some turn
	// or discarded.
	LastLine int `json:"last_line"`
	// TurnCount is the cumulative number of turns delivered or queued.
	TurnCount int `json:"turn_count"`
	// UpdatedAt is compared against the transcript's modification time
	// during discovery.
	UpdatedAt time.Time `json:"updated"`
}

// Store reads and writes the checkpoint file. Save is a full overwrite of
// the whole mapping, so callers read-modify-write; overlapping writers are
// not coordinated here and must be serialized by the external trigger.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted session mapping. A missing or corrupt file
// yields an empty mapping, never an error: losing a checkpoint only costs a
// re-parse.
func (s *Store) Load() map[string]Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]Checkpoint{}
	}
	var m map[string]Checkpoint
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return map[string]Checkpoint{}
	}
	return m
}

// Save atomically replaces the persisted mapping.
func (s *Store) Save(m map[string]Checkpoint) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoints: %w", err)
	}
	if err := fsx.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoints: %w", err)
	}
	return nil
}
