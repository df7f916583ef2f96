package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peekwez/docai/constants"
	"github.com/peekwez/docai/internal/entity"
)

// SchemaRepository is the schema table: point get, range query by name,
// and the single allowed status update (soft delete).
type SchemaRepository interface {
	Create(ctx context.Context, s *entity.Schema) error
	Get(ctx context.Context, name, version string) (*entity.Schema, error)
	ListByName(ctx context.Context, name string) ([]entity.Schema, error)
	MarkDeleted(ctx context.Context, name, version string) error
}

type schemaRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSchemaRepository(pool *pgxpool.Pool, log *slog.Logger) SchemaRepository {
	return &schemaRepo{pool: pool, log: log}
}

func (r *schemaRepo) Create(ctx context.Context, s *entity.Schema) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schemas (schema_name, schema_version, description, definition, status, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.Name, s.Version, s.Description, []byte(s.Definition), string(s.Status), s.TokenCount, s.CreatedAt,
	)
	if err != nil {
		r.log.Error("schema create failed", "schema_name", s.Name, "err", err)
		return err
	}
	r.log.Info("schema created", "schema_name", s.Name, "schema_version", s.Version, "tokens", s.TokenCount)
	return nil
}

// Get returns (nil, nil) when the row is absent; callers decide whether
// that is a domain error.
func (r *schemaRepo) Get(ctx context.Context, name, version string) (*entity.Schema, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT schema_name, schema_version, description, definition, status, token_count, created_at
		FROM schemas WHERE schema_name = $1 AND schema_version = $2`,
		name, version,
	)
	var s entity.Schema
	var status string
	var definition []byte
	err := row.Scan(&s.Name, &s.Version, &s.Description, &definition, &status, &s.TokenCount, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("schema get failed", "schema_name", name, "err", err)
		return nil, err
	}
	s.Definition = definition
	s.Status = constants.SchemaStatus(status)
	return &s, nil
}

func (r *schemaRepo) ListByName(ctx context.Context, name string) ([]entity.Schema, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT schema_name, schema_version, description, definition, status, token_count, created_at
		FROM schemas WHERE schema_name = $1
		ORDER BY created_at DESC`,
		name,
	)
	if err != nil {
		r.log.Error("schema list failed", "schema_name", name, "err", err)
		return nil, err
	}
	defer rows.Close()

	var out []entity.Schema
	for rows.Next() {
		var s entity.Schema
		var status string
		var definition []byte
		if err := rows.Scan(&s.Name, &s.Version, &s.Description, &definition, &status, &s.TokenCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Definition = definition
		s.Status = constants.SchemaStatus(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *schemaRepo) MarkDeleted(ctx context.Context, name, version string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE schemas SET status = $3 WHERE schema_name = $1 AND schema_version = $2`,
		name, version, string(constants.SchemaStatusDeleted),
	)
	if err != nil {
		r.log.Error("schema delete failed", "schema_name", name, "err", err)
		return err
	}
	r.log.Info("schema soft-deleted", "schema_name", name, "schema_version", version)
	return nil
}
