package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type resultRepository struct {
	db *sql.DB
}

func (r *resultRepository) Put(ctx context.Context, resp *model.Response) error {
	createdAt := resp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var resultType, resultContent sql.NullString
	if resp.Result != nil {
		resultType = sql.NullString{String: resp.Result.Type, Valid: true}
		resultContent = sql.NullString{String: resp.Result.Content, Valid: true}
	}
	var errMsg sql.NullString
	if resp.Error != "" {
		errMsg = sql.NullString{String: resp.Error, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO results (task_id, status, result_type, result_content, error, provider, tokens, cost, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			status = excluded.status,
			result_type = excluded.result_type,
			result_content = excluded.result_content,
			error = excluded.error,
			provider = excluded.provider,
			tokens = excluded.tokens,
			cost = excluded.cost,
			elapsed_ms = excluded.elapsed_ms`,
		string(resp.TaskID), string(resp.Status), resultType, resultContent, errMsg,
		string(resp.Metadata.Provider), resp.Metadata.Tokens, resp.Metadata.Cost,
		resp.Metadata.ElapsedMS, createdAt.UnixMilli(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert result", goerr.V("task_id", resp.TaskID))
	}
	return nil
}

func (r *resultRepository) Get(ctx context.Context, taskID types.TaskID) (*model.Response, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT task_id, status, result_type, result_content, error, provider, tokens, cost, elapsed_ms, created_at
		FROM results WHERE task_id = ?`, string(taskID))

	var (
		id, status                    string
		resultType, resultContent     sql.NullString
		errMsg                        sql.NullString
		provider                      string
		tokens                        int
		cost                          float64
		elapsedMS, createdAt          int64
	)
	if err := row.Scan(&id, &status, &resultType, &resultContent, &errMsg, &provider, &tokens, &cost, &elapsedMS, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to query result", goerr.V("task_id", taskID))
	}

	resp := &model.Response{
		TaskID: types.TaskID(id),
		Status: types.TaskStatus(status),
		Error:  errMsg.String,
		Metadata: model.ResponseMetadata{
			Provider:  types.ProviderName(provider),
			Tokens:    tokens,
			Cost:      cost,
			ElapsedMS: elapsedMS,
		},
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}
	if resultType.Valid {
		resp.Result = &model.TaskResult{Type: resultType.String, Content: resultContent.String}
	}
	return resp, nil
}
