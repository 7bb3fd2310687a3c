// Package sqlite provides the durable backend of the dual-tier store.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
)

// Store is the SQLite-backed durable store
type Store struct {
	db         *sql.DB
	results    *resultRepository
	embeddings *embeddingRepository
	history    *historyRepository
	snapshots  *snapshotRepository
}

var _ interfaces.Store = &Store{}

// Open creates or opens the SQLite database at dir/taskmesh.db.
// Enables WAL mode, foreign keys, and a 5-second busy timeout.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to create data dir", goerr.V("dir", dir))
	}

	dbPath := filepath.Join(dir, "taskmesh.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", dbPath))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to ping sqlite", goerr.V("path", dbPath))
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{
		db:         db,
		results:    &resultRepository{db: db},
		embeddings: &embeddingRepository{db: db},
		history:    &historyRepository{db: db},
		snapshots:  &snapshotRepository{db: db},
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to migrate sqlite schema")
	}

	return s, nil
}

// migrate runs idempotent schema migrations
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS results (
			task_id        TEXT PRIMARY KEY,
			status         TEXT NOT NULL,
			result_type    TEXT,
			result_content TEXT,
			error          TEXT,
			provider       TEXT NOT NULL DEFAULT '',
			tokens         INTEGER NOT NULL DEFAULT 0,
			cost           REAL NOT NULL DEFAULT 0,
			elapsed_ms     INTEGER NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			tenant_id  TEXT NOT NULL,
			id         TEXT NOT NULL,
			content    TEXT NOT NULL,
			vector     BLOB NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL,
			PRIMARY KEY (tenant_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			task_id         TEXT NOT NULL,
			seq             INTEGER NOT NULL,
			created_at      INTEGER NOT NULL,
			PRIMARY KEY (conversation_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id          TEXT PRIMARY KEY,
			tenant_id   TEXT NOT NULL DEFAULT '',
			values_json TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return goerr.Wrap(err, "migration failed", goerr.V("stmt", m))
		}
	}
	return nil
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
	if err := s.db.PingContext(ctx); err != nil {
		return goerr.Wrap(err, "sqlite ping failed")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
