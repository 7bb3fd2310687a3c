package memory

import (
	"context"
	"sync"
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type resultRepository struct {
	mu      sync.RWMutex
	results map[types.TaskID]*model.Response
}

func newResultRepository() *resultRepository {
	return &resultRepository{
		results: make(map[types.TaskID]*model.Response),
	}
}

func (r *resultRepository) Put(ctx context.Context, resp *model.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := resp.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.results[resp.TaskID] = stored
	return nil
}

func (r *resultRepository) Get(ctx context.Context, taskID types.TaskID) (*model.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resp, exists := r.results[taskID]
	if !exists {
		return nil, nil
	}
	return resp.Clone(), nil
}
