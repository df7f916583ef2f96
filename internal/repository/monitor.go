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

// MonitorRepository is the append-only status ledger: put and a descending
// range query by request_id. Entries are never updated or deleted.
type MonitorRepository interface {
	Append(ctx context.Context, e entity.MonitorEntry) error
	Latest(ctx context.Context, requestID string) (*entity.MonitorEntry, error)
	History(ctx context.Context, requestID string) ([]entity.MonitorEntry, error)
}

type monitorRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewMonitorRepository(pool *pgxpool.Pool, log *slog.Logger) MonitorRepository {
	return &monitorRepo{pool: pool, log: log}
}

func (r *monitorRepo) Append(ctx context.Context, e entity.MonitorEntry) error {
	// ON CONFLICT DO NOTHING keeps replays harmless: a redelivered job may
	// append the same (request_id, created_at) pair.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO monitor (request_id, status, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (request_id, created_at) DO NOTHING`,
		e.RequestID, string(e.Status), e.CreatedAt,
	)
	if err != nil {
		r.log.Error("monitor append failed", "request_id", e.RequestID, "status", e.Status, "err", err)
		return err
	}
	r.log.Info("monitor entry appended", "request_id", e.RequestID, "status", e.Status)
	return nil
}

func (r *monitorRepo) Latest(ctx context.Context, requestID string) (*entity.MonitorEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT request_id, status, created_at FROM monitor
		WHERE request_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		requestID,
	)
	var e entity.MonitorEntry
	var status string
	err := row.Scan(&e.RequestID, &status, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("monitor latest failed", "request_id", requestID, "err", err)
		return nil, err
	}
	e.Status = constants.JobStatus(status)
	return &e, nil
}

func (r *monitorRepo) History(ctx context.Context, requestID string) ([]entity.MonitorEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT request_id, status, created_at FROM monitor
		WHERE request_id = $1
		ORDER BY created_at DESC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.MonitorEntry
	for rows.Next() {
		var e entity.MonitorEntry
		var status string
		if err := rows.Scan(&e.RequestID, &status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = constants.JobStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
