package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
)

type dispatchLogRepo struct{ pool *pgxpool.Pool }

func (r *dispatchLogRepo) Insert(ctx context.Context, entry *repository.DispatchLogEntry) error {
	const query = `
		INSERT INTO dispatch_log (tenant_id, recipients, subject, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	entry.Status = repository.StatusSending
	err := r.pool.QueryRow(ctx, query,
		entry.TenantID, entry.Recipients, entry.Subject, entry.Status,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("pg: insert dispatch log: %w", err)
	}
	return nil
}

func (r *dispatchLogRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `
		UPDATE dispatch_log SET status = $2, sent_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.pool.Exec(ctx, query, id, repository.StatusSent, sentAt, repository.StatusSending)
	if err != nil {
		return fmt.Errorf("pg: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *dispatchLogRepo) MarkFailed(ctx context.Context, id string, errText string) error {
	const query = `
		UPDATE dispatch_log SET status = $2, error = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.pool.Exec(ctx, query, id, repository.StatusFailed, errText, repository.StatusSending)
	if err != nil {
		return fmt.Errorf("pg: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *dispatchLogRepo) Get(ctx context.Context, id string) (*repository.DispatchLogEntry, error) {
	const query = `
		SELECT id, tenant_id, recipients, subject, status, COALESCE(error, ''), created_at, sent_at
		FROM dispatch_log WHERE id = $1
	`
	var entry repository.DispatchLogEntry
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&entry.ID, &entry.TenantID, &entry.Recipients, &entry.Subject,
		&entry.Status, &entry.Error, &entry.CreatedAt, &entry.SentAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get dispatch log: %w", err)
	}
	return &entry, nil
}
