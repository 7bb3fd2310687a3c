package memory

import (
	"context"

	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
)

// Store is an in-memory durable backend for development and tests
type Store struct {
	results    *resultRepository
	embeddings *embeddingRepository
	history    *historyRepository
	snapshots  *snapshotRepository
}

var _ interfaces.Store = &Store{}

func New() *Store {
	return &Store{
		results:    newResultRepository(),
		embeddings: newEmbeddingRepository(),
		history:    newHistoryRepository(),
		snapshots:  newSnapshotRepository(),
	}
}

func (s *Store) Results() interfaces.ResultRepository {
	return s.results
}

func (s *Store) Embeddings() interfaces.EmbeddingRepository {
	return s.embeddings
}

func (s *Store) History() interfaces.HistoryRepository {
	return s.history
}

func (s *Store) Snapshots() interfaces.SnapshotRepository {
	return s.snapshots
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
