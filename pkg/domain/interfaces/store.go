package interfaces

import (
	"context"

	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// Store defines the interface for the dual-tier persistence layer
type Store interface {
	Results() ResultRepository
	Embeddings() EmbeddingRepository
	History() HistoryRepository
	Snapshots() SnapshotRepository

	HealthCheck(ctx context.Context) error
	Close() error
}

// ResultRepository persists task responses keyed by task ID
type ResultRepository interface {
	// Put upserts the response row for its task ID. Re-submitting the same
	// task ID overwrites output and metadata.
	Put(ctx context.Context, resp *model.Response) error

	// Get returns the stored response, or (nil, nil) when absent.
	Get(ctx context.Context, taskID types.TaskID) (*model.Response, error)
}

// EmbeddingRepository stores tenant-scoped vectors with semantic recall
type EmbeddingRepository interface {
	// Upsert replaces the content, vector and metadata of an existing ID,
	// or creates the record.
	Upsert(ctx context.Context, record *model.Embedding) error

	// Get returns the stored embedding, or (nil, nil) when absent.
	Get(ctx context.Context, tenantID types.TenantID, id types.EmbeddingID) (*model.Embedding, error)

	// Nearest returns up to limit embeddings of the tenant ordered by
	// ascending cosine distance to the query vector. It never returns a
	// record belonging to a different tenant.
	Nearest(ctx context.Context, tenantID types.TenantID, vector []float32, limit int) ([]*model.Embedding, error)
}

// HistoryRepository owns conversation-history sequencing
type HistoryRepository interface {
	// Append creates the conversation if absent (else touches its update
	// time) and appends an entry with the next sequence number. The
	// increment-and-append is atomic per conversation.
	Append(ctx context.Context, conversationID types.ConversationID, taskID types.TaskID) (*model.HistoryEntry, error)

	// List returns all entries of a conversation in sequence order.
	List(ctx context.Context, conversationID types.ConversationID) ([]*model.HistoryEntry, error)
}

// SnapshotRepository stores context fragments for task hydration
type SnapshotRepository interface {
	Put(ctx context.Context, snapshot *model.Snapshot) error

	// Get returns the stored snapshot, or (nil, nil) when absent.
	Get(ctx context.Context, id types.SnapshotID) (*model.Snapshot, error)
}
