package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type embeddingRepository struct {
	db *sql.DB
}

// encodeVector serializes a vector as little-endian float32 bits
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func (r *embeddingRepository) Upsert(ctx context.Context, record *model.Embedding) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal embedding metadata", goerr.V("id", record.ID))
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO embeddings (tenant_id, id, content, vector, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			content = excluded.content,
			vector = excluded.vector,
			metadata = excluded.metadata`,
		string(record.TenantID), string(record.ID), record.Content,
		encodeVector(record.Vector), string(metaJSON), createdAt.UnixMilli(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert embedding",
			goerr.V("tenant_id", record.TenantID), goerr.V("id", record.ID))
	}
	return nil
}

func (r *embeddingRepository) Get(ctx context.Context, tenantID types.TenantID, id types.EmbeddingID) (*model.Embedding, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, content, vector, metadata, created_at
		FROM embeddings WHERE tenant_id = ? AND id = ?`,
		string(tenantID), string(id))

	record, err := scanEmbedding(row, tenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to query embedding",
			goerr.V("tenant_id", tenantID), goerr.V("id", id))
	}
	return record, nil
}

// Nearest loads the tenant's vectors and ranks them in process. The
// embedding sets this core handles are small enough that a linear scan is
// the consistent choice across both backends.
func (r *embeddingRepository) Nearest(ctx context.Context, tenantID types.TenantID, vector []float32, limit int) ([]*model.Embedding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, vector, metadata, created_at
		FROM embeddings WHERE tenant_id = ?`, string(tenantID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query embeddings", goerr.V("tenant_id", tenantID))
	}
	defer rows.Close()

	type scored struct {
		record   *model.Embedding
		distance float64
	}

	var candidates []scored
	for rows.Next() {
		record, err := scanEmbedding(rows, tenantID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan embedding row", goerr.V("tenant_id", tenantID))
		}
		candidates = append(candidates, scored{
			record:   record,
			distance: model.CosineDistance(vector, record.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate embedding rows", goerr.V("tenant_id", tenantID))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}

	result := make([]*model.Embedding, limit)
	for i := 0; i < limit; i++ {
		result[i] = candidates[i].record
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmbedding(row rowScanner, tenantID types.TenantID) (*model.Embedding, error) {
	var (
		id, content, metaJSON string
		vectorBlob            []byte
		createdAt             int64
	)
	if err := row.Scan(&id, &content, &vectorBlob, &metaJSON, &createdAt); err != nil {
		return nil, err
	}

	metadata := map[string]string{}
	if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal embedding metadata", goerr.V("id", id))
	}

	return &model.Embedding{
		ID:        types.EmbeddingID(id),
		Content:   content,
		Vector:    decodeVector(vectorBlob),
		Metadata:  metadata,
		TenantID:  tenantID,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}, nil
}
