package model

import (
	"math"
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// Embedding is a durable vector record scoped to a tenant. Immutable once
// stored except by explicit upsert with the same ID.
type Embedding struct {
	ID        types.EmbeddingID `json:"id"`
	Content   string            `json:"content"`
	Vector    []float32         `json:"vector"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	TenantID  types.TenantID    `json:"tenant_id"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// Clone returns a deep copy of the embedding
func (e *Embedding) Clone() *Embedding {
	copied := *e
	if e.Vector != nil {
		copied.Vector = make([]float32, len(e.Vector))
		copy(copied.Vector, e.Vector)
	}
	if e.Metadata != nil {
		copied.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}

// CosineDistance returns 1 - cosine similarity of two vectors. It is the
// fixed distance metric applied at both write and query time. Mismatched or
// zero vectors are treated as maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 1
	}

	return 1 - dot/denom
}
