package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type snapshotRepository struct {
	db *sql.DB
}

func (r *snapshotRepository) Put(ctx context.Context, snapshot *model.Snapshot) error {
	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	values := snapshot.Values
	if values == nil {
		values = map[string]any{}
	}
	valuesJSON, err := json.Marshal(values)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal snapshot values", goerr.V("id", snapshot.ID))
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, tenant_id, values_json, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			values_json = excluded.values_json`,
		string(snapshot.ID), string(snapshot.TenantID), string(valuesJSON), createdAt.UnixMilli(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert snapshot", goerr.V("id", snapshot.ID))
	}
	return nil
}

func (r *snapshotRepository) Get(ctx context.Context, id types.SnapshotID) (*model.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, values_json, created_at FROM snapshots WHERE id = ?`, string(id))

	var (
		tenantID, valuesJSON string
		createdAt            int64
	)
	if err := row.Scan(&tenantID, &valuesJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to query snapshot", goerr.V("id", id))
	}

	values := map[string]any{}
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal snapshot values", goerr.V("id", id))
	}

	return &model.Snapshot{
		ID:        id,
		TenantID:  types.TenantID(tenantID),
		Values:    values,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}, nil
}
