package memory

import (
	"context"
	"sync"
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type snapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[types.SnapshotID]*model.Snapshot
}

func newSnapshotRepository() *snapshotRepository {
	return &snapshotRepository{
		snapshots: make(map[types.SnapshotID]*model.Snapshot),
	}
}

func (r *snapshotRepository) Put(ctx context.Context, snapshot *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := snapshot.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.snapshots[snapshot.ID] = stored
	return nil
}

func (r *snapshotRepository) Get(ctx context.Context, id types.SnapshotID) (*model.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, exists := r.snapshots[id]
	if !exists {
		return nil, nil
	}
	return snapshot.Clone(), nil
}
