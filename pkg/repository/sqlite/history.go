package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type historyRepository struct {
	db *sql.DB
}

// Append runs increment-and-append in a single transaction. Combined with
// SQLite's single-writer connection this keeps per-conversation sequence
// numbers gapless under concurrent appends.
func (r *historyRepository) Append(ctx context.Context, conversationID types.ConversationID, taskID types.TaskID) (*model.HistoryEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin history transaction", goerr.V("conversation_id", conversationID))
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		string(conversationID), now.UnixMilli(), now.UnixMilli(),
	); err != nil {
		return nil, goerr.Wrap(err, "failed to upsert conversation", goerr.V("conversation_id", conversationID))
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM history WHERE conversation_id = ?`,
		string(conversationID),
	).Scan(&seq); err != nil {
		return nil, goerr.Wrap(err, "failed to compute next sequence number", goerr.V("conversation_id", conversationID))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (conversation_id, task_id, seq, created_at) VALUES (?, ?, ?, ?)`,
		string(conversationID), string(taskID), seq, now.UnixMilli(),
	); err != nil {
		return nil, goerr.Wrap(err, "failed to append history entry",
			goerr.V("conversation_id", conversationID), goerr.V("seq", seq))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit history append", goerr.V("conversation_id", conversationID))
	}

	return &model.HistoryEntry{
		ConversationID: conversationID,
		TaskID:         taskID,
		Seq:            seq,
		CreatedAt:      now,
	}, nil
}

func (r *historyRepository) List(ctx context.Context, conversationID types.ConversationID) ([]*model.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, seq, created_at FROM history
		WHERE conversation_id = ? ORDER BY seq`, string(conversationID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query history", goerr.V("conversation_id", conversationID))
	}
	defer rows.Close()

	var result []*model.HistoryEntry
	for rows.Next() {
		var (
			taskID    string
			seq       int64
			createdAt int64
		)
		if err := rows.Scan(&taskID, &seq, &createdAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan history row", goerr.V("conversation_id", conversationID))
		}
		result = append(result, &model.HistoryEntry{
			ConversationID: conversationID,
			TaskID:         types.TaskID(taskID),
			Seq:            seq,
			CreatedAt:      time.UnixMilli(createdAt).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate history rows", goerr.V("conversation_id", conversationID))
	}
	return result, nil
}
