package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peekwez/docai/internal/entity"
)

// ResultRepository is the result table: point get and idempotent point put.
// Redelivered jobs overwrite with the same or a corrected outcome.
type ResultRepository interface {
	Put(ctx context.Context, res *entity.ExtractionResult) error
	Get(ctx context.Context, requestID string) (*entity.ExtractionResult, error)
}

type resultRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewResultRepository(pool *pgxpool.Pool, log *slog.Logger) ResultRepository {
	return &resultRepo{pool: pool, log: log}
}

func (r *resultRepo) Put(ctx context.Context, res *entity.ExtractionResult) error {
	var errJSON []byte
	if res.Error != nil {
		b, err := json.Marshal(res.Error)
		if err != nil {
			return err
		}
		errJSON = b
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO results (request_id, schema_name, schema_version, result, error, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (request_id) DO UPDATE SET
			schema_name = EXCLUDED.schema_name,
			schema_version = EXCLUDED.schema_version,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			metadata = EXCLUDED.metadata`,
		res.RequestID, res.SchemaName, res.SchemaVersion,
		nullableJSON(res.Result), errJSON, nullableJSON(res.Metadata),
	)
	if err != nil {
		r.log.Error("result put failed", "request_id", res.RequestID, "err", err)
		return err
	}
	return nil
}

func (r *resultRepo) Get(ctx context.Context, requestID string) (*entity.ExtractionResult, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT request_id, schema_name, schema_version, result, error, metadata, created_at
		FROM results WHERE request_id = $1`,
		requestID,
	)
	var res entity.ExtractionResult
	var result, errJSON, metadata []byte
	err := row.Scan(&res.RequestID, &res.SchemaName, &res.SchemaVersion, &result, &errJSON, &metadata, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("result get failed", "request_id", requestID, "err", err)
		return nil, err
	}
	res.Result = result
	res.Metadata = metadata
	if len(errJSON) > 0 {
		var info entity.ErrorInfo
		if err := json.Unmarshal(errJSON, &info); err != nil {
			return nil, err
		}
		res.Error = &info
	}
	return &res, nil
}

// nullableJSON maps empty raw messages to SQL NULL instead of invalid jsonb.
func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
