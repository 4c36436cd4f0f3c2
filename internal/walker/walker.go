package walker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aidalabs/drive-connector/internal/domain"
	"github.com/aidalabs/drive-connector/internal/drive"
)

// DefaultCheckpointEvery is the number of discovered items between
// checkpoint snapshots.
const DefaultCheckpointEvery = 500

// Walker traverses the folder tree depth-first, recording every item it
// encounters. Folders already visited are skipped, so malformed cyclic
// parent links terminate.
type Walker struct {
	store           drive.Store
	snapshotPath    string
	pageSize        int64
	checkpointEvery int
}

// New creates a walker persisting to snapshotPath. checkpointEvery <= 0
// falls back to the default.
func New(store drive.Store, snapshotPath string, pageSize int64, checkpointEvery int) *Walker {
	if checkpointEvery <= 0 {
		checkpointEvery = DefaultCheckpointEvery
	}
	return &Walker{
		store:           store,
		snapshotPath:    snapshotPath,
		pageSize:        pageSize,
		checkpointEvery: checkpointEvery,
	}
}

// Walk traverses the tree rooted at rootID and returns the final snapshot.
// Every folder's pages are drained before its subfolders are descended
// into. Each item is stamped with its path relative to the root. A
// checkpoint snapshot is written every checkpointEvery items; the final
// snapshot is always written.
func (w *Walker) Walk(ctx context.Context, rootID string) (*Snapshot, error) {
	type frame struct {
		id   string
		path string
	}

	stack := []frame{{id: rootID}}
	visited := map[string]struct{}{rootID: {}}
	var items []domain.FileRecord
	lastCheckpoint := 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := drive.ListAll(ctx, w.store, drive.Query{ParentID: cur.id}, w.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", cur.id, err)
		}

		for _, rec := range children {
			rec.Path = cur.path + "/" + rec.Name
			items = append(items, rec)

			if rec.IsFolder() {
				if _, ok := visited[rec.ID]; ok {
					slog.Warn("Folder already visited, skipping", "folder", rec.Name, "id", rec.ID)
				} else {
					visited[rec.ID] = struct{}{}
					stack = append(stack, frame{id: rec.ID, path: rec.Path})
				}
			}

			if len(items)-lastCheckpoint >= w.checkpointEvery {
				if err := NewSnapshot(items).Save(w.snapshotPath); err != nil {
					slog.Warn("Checkpoint snapshot failed", "error", err)
				} else {
					slog.Info("Checkpoint snapshot written", "items", len(items))
				}
				lastCheckpoint = len(items)
			}
		}
	}

	snap := NewSnapshot(items)
	if err := snap.Save(w.snapshotPath); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	slog.Info("Drive walk complete", "items", snap.TotalItems)
	return snap, nil
}

// SnapshotPath returns where the walker persists its snapshot.
func (w *Walker) SnapshotPath() string {
	return w.snapshotPath
}
