package config

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/repository"
	"github.com/relayforge/taskmesh/pkg/repository/memory"
	"github.com/relayforge/taskmesh/pkg/repository/sqlite"
	"github.com/relayforge/taskmesh/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Store holds CLI flags for the dual-tier store configuration
type Store struct {
	backend   string
	sqliteDir string
	cacheTTL  time.Duration
	cacheSize int
}

// Flags returns CLI flags for store configuration
func (s *Store) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store-backend",
			Usage:       "Durable store backend (sqlite or memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("TASKMESH_STORE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-dir",
			Usage:       "Directory for the SQLite database file (required when using sqlite backend)",
			Sources:     cli.EnvVars("TASKMESH_SQLITE_DIR"),
			Destination: &s.sqliteDir,
		},
		&cli.DurationFlag{
			Name:        "cache-ttl",
			Usage:       "Expiry of the fast result cache",
			Value:       repository.DefaultCacheTTL,
			Sources:     cli.EnvVars("TASKMESH_CACHE_TTL"),
			Destination: &s.cacheTTL,
		},
		&cli.IntFlag{
			Name:        "cache-size",
			Usage:       "Capacity of the fast result cache",
			Value:       repository.DefaultCacheSize,
			Sources:     cli.EnvVars("TASKMESH_CACHE_SIZE"),
			Destination: &s.cacheSize,
		},
	}
}

// Backend returns the configured durable backend type
func (s *Store) Backend() string {
	return s.backend
}

// Configure initializes the dual-tier store over the configured durable
// backend. The caller is responsible for Close().
func (s *Store) Configure(ctx context.Context) (interfaces.Store, error) {
	var durable interfaces.Store

	switch s.backend {
	case "sqlite":
		if s.sqliteDir == "" {
			return nil, goerr.New("sqlite-dir is required when using sqlite backend")
		}
		db, err := sqlite.Open(s.sqliteDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite store")
		}
		logging.Default().Info("Using SQLite durable store", "dir", s.sqliteDir)
		durable = db

	case "memory":
		logging.Default().Info("Using in-memory durable store (development mode)")
		durable = memory.New()

	default:
		return nil, goerr.New("invalid store backend", goerr.V("backend", s.backend))
	}

	return repository.NewTiered(durable,
		repository.WithCacheTTL(s.cacheTTL),
		repository.WithCacheSize(s.cacheSize),
	), nil
}
