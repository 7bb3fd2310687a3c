// Package repository composes the dual-tier store: a fast expiring result
// cache layered over a durable backend. The durable tier is the source of
// truth; the cache is a pure optimization.
package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/metrics"
)

const (
	// DefaultCacheTTL is the fixed expiry of cached results
	DefaultCacheTTL = time.Hour

	// DefaultCacheSize bounds the number of cached results
	DefaultCacheSize = 4096
)

// Tiered is a dual-tier store: result reads go through the cache, writes
// land in both tiers. Everything except results passes straight through to
// the durable backend.
type Tiered struct {
	durable interfaces.Store
	cache   *resultCache
	results *tieredResults
}

var _ interfaces.Store = &Tiered{}

// Option configures a Tiered store
type Option func(*tieredConfig)

type tieredConfig struct {
	ttl  time.Duration
	size int
}

// WithCacheTTL overrides the fixed cache expiry
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *tieredConfig) {
		c.ttl = ttl
	}
}

// WithCacheSize overrides the cache capacity
func WithCacheSize(size int) Option {
	return func(c *tieredConfig) {
		c.size = size
	}
}

// NewTiered wraps a durable backend with the fast cache tier
func NewTiered(durable interfaces.Store, opts ...Option) *Tiered {
	cfg := &tieredConfig{ttl: DefaultCacheTTL, size: DefaultCacheSize}
	for _, opt := range opts {
		opt(cfg)
	}

	cache := newResultCache(cfg.size, cfg.ttl)
	return &Tiered{
		durable: durable,
		cache:   cache,
		results: &tieredResults{durable: durable.Results(), cache: cache},
	}
}

func (s *Tiered) Results() interfaces.ResultRepository {
	return s.results
}

func (s *Tiered) Embeddings() interfaces.EmbeddingRepository {
	return s.durable.Embeddings()
}

func (s *Tiered) History() interfaces.HistoryRepository {
	return s.durable.History()
}

func (s *Tiered) Snapshots() interfaces.SnapshotRepository {
	return s.durable.Snapshots()
}

// HealthCheck reports healthy only when both tiers respond. The in-process
// cache responds by construction, so the durable backend decides.
func (s *Tiered) HealthCheck(ctx context.Context) error {
	if s.cache == nil {
		return goerr.New("result cache is not initialized")
	}
	if err := s.durable.HealthCheck(ctx); err != nil {
		return goerr.Wrap(err, "durable store unhealthy")
	}
	return nil
}

func (s *Tiered) Close() error {
	s.cache.purge()
	return s.durable.Close()
}

type tieredResults struct {
	durable interfaces.ResultRepository
	cache   *resultCache
}

// Put writes both tiers. A cache-write failure must not prevent the
// durable write; with the in-process cache the add cannot fail, so the
// durable upsert is attempted unconditionally.
func (r *tieredResults) Put(ctx context.Context, resp *model.Response) error {
	r.cache.put(resp)

	if err := r.durable.Put(ctx, resp); err != nil {
		return goerr.Wrap(err, "failed to persist result", goerr.V("task_id", resp.TaskID))
	}
	return nil
}

// Get is read-through: cache first, then durable, repopulating the cache
// on a durable hit. Absent from both tiers returns (nil, nil).
func (r *tieredResults) Get(ctx context.Context, taskID types.TaskID) (*model.Response, error) {
	if resp := r.cache.get(taskID); resp != nil {
		metrics.CacheHits.Inc()
		return resp, nil
	}
	metrics.CacheMisses.Inc()

	resp, err := r.durable.Get(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch result", goerr.V("task_id", taskID))
	}
	if resp == nil {
		return nil, nil
	}

	r.cache.put(resp)
	return resp, nil
}
