package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type embeddingRepository struct {
	mu      sync.RWMutex
	tenants map[types.TenantID]map[types.EmbeddingID]*model.Embedding
}

func newEmbeddingRepository() *embeddingRepository {
	return &embeddingRepository{
		tenants: make(map[types.TenantID]map[types.EmbeddingID]*model.Embedding),
	}
}

func (r *embeddingRepository) Upsert(ctx context.Context, record *model.Embedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, exists := r.tenants[record.TenantID]
	if !exists {
		bucket = make(map[types.EmbeddingID]*model.Embedding)
		r.tenants[record.TenantID] = bucket
	}

	stored := record.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	bucket[record.ID] = stored
	return nil
}

func (r *embeddingRepository) Get(ctx context.Context, tenantID types.TenantID, id types.EmbeddingID) (*model.Embedding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, exists := r.tenants[tenantID]
	if !exists {
		return nil, nil
	}
	record, exists := bucket[id]
	if !exists {
		return nil, nil
	}
	return record.Clone(), nil
}

func (r *embeddingRepository) Nearest(ctx context.Context, tenantID types.TenantID, vector []float32, limit int) ([]*model.Embedding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, exists := r.tenants[tenantID]
	if !exists {
		return []*model.Embedding{}, nil
	}

	type scored struct {
		record   *model.Embedding
		distance float64
	}

	candidates := make([]scored, 0, len(bucket))
	for _, record := range bucket {
		candidates = append(candidates, scored{
			record:   record.Clone(),
			distance: model.CosineDistance(vector, record.Vector),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}

	result := make([]*model.Embedding, limit)
	for i := 0; i < limit; i++ {
		result[i] = candidates[i].record
	}
	return result, nil
}
