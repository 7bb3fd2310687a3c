package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/repository/memory"
	"github.com/relayforge/taskmesh/pkg/repository/sqlite"
)

func newTestBackends(t *testing.T) map[string]func(t *testing.T) interfaces.Store {
	t.Helper()

	return map[string]func(t *testing.T) interfaces.Store{
		"memory": func(t *testing.T) interfaces.Store {
			return memory.New()
		},
		"sqlite": func(t *testing.T) interfaces.Store {
			store, err := sqlite.Open(t.TempDir())
			gt.NoError(t, err).Required()
			t.Cleanup(func() {
				gt.NoError(t, store.Close())
			})
			return store
		},
	}
}

func TestStoreBackends(t *testing.T) {
	for name, newStore := range newTestBackends(t) {
		t.Run(name, func(t *testing.T) {
			runResultTest(t, newStore)
			runEmbeddingTest(t, newStore)
			runHistoryTest(t, newStore)
			runSnapshotTest(t, newStore)
		})
	}
}

func runResultTest(t *testing.T, newStore func(t *testing.T) interfaces.Store) {
	t.Helper()

	t.Run("Put and Get round-trips a response", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		resp := &model.Response{
			TaskID: "task-1",
			Status: types.TaskStatusCompleted,
			Result: &model.TaskResult{Type: "summary", Content: "short version"},
			Metadata: model.ResponseMetadata{
				Provider:  "gpt4",
				Tokens:    42,
				Cost:      1.26,
				ElapsedMS: 15,
			},
			CreatedAt: time.Now().UTC(),
		}
		gt.NoError(t, store.Results().Put(ctx, resp)).Required()

		got, err := store.Results().Get(ctx, "task-1")
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil().Required()
		gt.Value(t, got.TaskID).Equal(types.TaskID("task-1"))
		gt.Value(t, got.Status).Equal(types.TaskStatusCompleted)
		gt.Value(t, got.Result.Type).Equal("summary")
		gt.Value(t, got.Result.Content).Equal("short version")
		gt.Value(t, got.Metadata.Provider).Equal(types.ProviderName("gpt4"))
		gt.Value(t, got.Metadata.Tokens).Equal(42)
		gt.Value(t, got.Metadata.Cost).Equal(1.26)
	})

	t.Run("Put overwrites the row for the same task id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first := &model.Response{
			TaskID: "task-2",
			Status: types.TaskStatusFailed,
			Error:  "boom",
		}
		gt.NoError(t, store.Results().Put(ctx, first)).Required()

		second := &model.Response{
			TaskID:   "task-2",
			Status:   types.TaskStatusCompleted,
			Result:   &model.TaskResult{Type: "text", Content: "retried"},
			Metadata: model.ResponseMetadata{Tokens: 7},
		}
		gt.NoError(t, store.Results().Put(ctx, second)).Required()

		got, err := store.Results().Get(ctx, "task-2")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.TaskStatusCompleted)
		gt.Value(t, got.Error).Equal("")
		gt.Value(t, got.Result.Content).Equal("retried")
	})

	t.Run("Get returns nil for an unknown task id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		got, err := store.Results().Get(ctx, "no-such-task")
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})
}

func runEmbeddingTest(t *testing.T, newStore func(t *testing.T) interfaces.Store) {
	t.Helper()

	t.Run("Nearest orders by ascending cosine distance", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		records := []*model.Embedding{
			{ID: "e1", TenantID: "acme", Content: "far", Vector: []float32{0, 1, 0}},
			{ID: "e2", TenantID: "acme", Content: "exact", Vector: []float32{1, 0, 0}},
			{ID: "e3", TenantID: "acme", Content: "near", Vector: []float32{0.9, 0.1, 0}},
		}
		for _, rec := range records {
			gt.NoError(t, store.Embeddings().Upsert(ctx, rec)).Required()
		}

		got, err := store.Embeddings().Nearest(ctx, "acme", []float32{1, 0, 0}, 3)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(3)
		gt.Value(t, got[0].ID).Equal(types.EmbeddingID("e2"))
		gt.Value(t, got[1].ID).Equal(types.EmbeddingID("e3"))
		gt.Value(t, got[2].ID).Equal(types.EmbeddingID("e1"))
	})

	t.Run("Nearest never crosses tenants", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		gt.NoError(t, store.Embeddings().Upsert(ctx, &model.Embedding{
			ID: "mine", TenantID: "acme", Vector: []float32{1, 0},
		})).Required()
		gt.NoError(t, store.Embeddings().Upsert(ctx, &model.Embedding{
			ID: "theirs", TenantID: "globex", Vector: []float32{1, 0},
		})).Required()

		got, err := store.Embeddings().Nearest(ctx, "acme", []float32{1, 0}, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(1)
		for _, rec := range got {
			gt.Value(t, rec.TenantID).Equal(types.TenantID("acme"))
		}
	})

	t.Run("Upsert replaces content, vector and metadata", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		gt.NoError(t, store.Embeddings().Upsert(ctx, &model.Embedding{
			ID: "e1", TenantID: "acme", Content: "v1", Vector: []float32{1, 0},
			Metadata: map[string]string{"rev": "1"},
		})).Required()
		gt.NoError(t, store.Embeddings().Upsert(ctx, &model.Embedding{
			ID: "e1", TenantID: "acme", Content: "v2", Vector: []float32{0, 1},
			Metadata: map[string]string{"rev": "2"},
		})).Required()

		got, err := store.Embeddings().Get(ctx, "acme", "e1")
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil().Required()
		gt.Value(t, got.Content).Equal("v2")
		gt.Value(t, got.Vector[0]).Equal(float32(0))
		gt.Value(t, got.Vector[1]).Equal(float32(1))
		gt.Value(t, got.Metadata["rev"]).Equal("2")
	})

	t.Run("Get returns nil for an unknown embedding", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		got, err := store.Embeddings().Get(ctx, "acme", "missing")
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})
}

func runHistoryTest(t *testing.T, newStore func(t *testing.T) interfaces.Store) {
	t.Helper()

	t.Run("Append assigns gapless sequence numbers from 1", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			entry, err := store.History().Append(ctx, "conv-1", types.TaskID(fmt.Sprintf("task-%d", i)))
			gt.NoError(t, err).Required()
			gt.Value(t, entry.Seq).Equal(int64(i))
		}

		entries, err := store.History().List(ctx, "conv-1")
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(3)
		for i, entry := range entries {
			gt.Value(t, entry.Seq).Equal(int64(i + 1))
		}
	})

	t.Run("Concurrent appends stay gapless", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.History().Append(ctx, "conv-race", types.TaskID(fmt.Sprintf("task-%d", i)))
				gt.NoError(t, err)
			}(i)
		}
		wg.Wait()

		entries, err := store.History().List(ctx, "conv-race")
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(n)

		seen := make(map[int64]bool)
		for _, entry := range entries {
			gt.Bool(t, seen[entry.Seq]).False()
			seen[entry.Seq] = true
		}
		for i := int64(1); i <= n; i++ {
			gt.Bool(t, seen[i]).True()
		}
	})

	t.Run("Conversations sequence independently", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		a, err := store.History().Append(ctx, "conv-a", "task-1")
		gt.NoError(t, err).Required()
		b, err := store.History().Append(ctx, "conv-b", "task-2")
		gt.NoError(t, err).Required()

		gt.Value(t, a.Seq).Equal(int64(1))
		gt.Value(t, b.Seq).Equal(int64(1))
	})
}

func runSnapshotTest(t *testing.T, newStore func(t *testing.T) interfaces.Store) {
	t.Helper()

	t.Run("Put and Get round-trips a snapshot", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		gt.NoError(t, store.Snapshots().Put(ctx, &model.Snapshot{
			ID:       "snap-1",
			TenantID: "acme",
			Values:   map[string]any{"topic": "billing", "count": float64(3)},
		})).Required()

		got, err := store.Snapshots().Get(ctx, "snap-1")
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil().Required()
		gt.Value(t, got.TenantID).Equal(types.TenantID("acme"))
		gt.Value(t, got.Values["topic"]).Equal(any("billing"))
	})

	t.Run("Get returns nil for an unknown snapshot", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		got, err := store.Snapshots().Get(ctx, "missing")
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})
}
