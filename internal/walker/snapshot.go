// Package walker traverses the remote folder tree and persists the
// discovered file records as a snapshot, checkpointed during long walks.
package walker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aidalabs/drive-connector/internal/domain"
)

// SnapshotFilename is the default snapshot filename.
const SnapshotFilename = "drive_snapshot.json"

// Snapshot holds the file records discovered by one walk, partial when
// written as a checkpoint.
type Snapshot struct {
	Timestamp  time.Time           `json:"timestamp"`
	TotalItems int                 `json:"total_items"`
	Items      []domain.FileRecord `json:"items"`
}

// NewSnapshot stamps a snapshot over the given records.
func NewSnapshot(items []domain.FileRecord) *Snapshot {
	return &Snapshot{
		Timestamp:  time.Now().UTC(),
		TotalItems: len(items),
		Items:      items,
	}
}

// LoadSnapshot reads a snapshot from disk. A missing file yields an empty
// snapshot, not an error.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot to disk atomically.
// Uses write-to-temp + rename pattern to prevent corruption.
func (s *Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	return nil
}

// IsEmpty reports whether the snapshot holds no items.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}
