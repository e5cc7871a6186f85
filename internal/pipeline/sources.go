package pipeline

import (
	"context"
	"fmt"

	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/storage"
)

// StoredSource replays a snapshot saved by an earlier run, for offline
// re-analysis without touching the repository.
type StoredSource struct {
	store  storage.Store
	source history.SourceID
	id     string // empty means the latest snapshot for source
}

// NewStoredSource reads snapshot id, or the latest snapshot of source when
// id is empty
func NewStoredSource(store storage.Store, source history.SourceID, id string) *StoredSource {
	return &StoredSource{store: store, source: source, id: id}
}

// LoadHistory returns the stored commits that fall inside window
func (s *StoredSource) LoadHistory(ctx context.Context, window history.Window) (*history.Snapshot, error) {
	id := s.id
	if id == "" {
		latest, err := s.store.LatestSnapshotID(ctx, s.source)
		if err != nil {
			return nil, fmt.Errorf("find stored snapshot for %s: %w", s.source, err)
		}
		id = latest
	}

	stored, err := s.store.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load stored snapshot %s: %w", id, err)
	}

	snap := &history.Snapshot{
		Source:           stored.Source,
		Window:           window,
		PullRequestCount: stored.PullRequestCount,
	}
	for _, cc := range stored.Commits {
		// zero timestamps pass through so the aggregator can count them
		if !cc.Commit.Timestamp.IsZero() && !window.Contains(cc.Commit.Timestamp) {
			continue
		}
		snap.Commits = append(snap.Commits, cc)
	}
	return snap, nil
}
