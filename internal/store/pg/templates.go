package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
)

type templateRepo struct{ pool *pgxpool.Pool }

const templateCols = `id, tenant_id, slug, name, engine, subject, body, text_body, version, active, created_at, updated_at`

func scanTemplate(row pgx.Row) (*repository.TemplateRecord, error) {
	var rec repository.TemplateRecord
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.Slug, &rec.Name, &rec.Engine,
		&rec.Subject, &rec.Body, &rec.TextBody, &rec.Version, &rec.Active,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan template: %w", err)
	}
	return &rec, nil
}

func (r *templateRepo) GetBySlug(ctx context.Context, tenantID, slug string, version *int) (*repository.TemplateRecord, error) {
	if version != nil {
		const query = `
			SELECT ` + templateCols + `
			FROM email_template
			WHERE tenant_id = $1 AND slug = $2 AND version = $3 AND active
		`
		return scanTemplate(r.pool.QueryRow(ctx, query, tenantID, slug, *version))
	}

	const query = `
		SELECT ` + templateCols + `
		FROM email_template
		WHERE tenant_id = $1 AND slug = $2 AND active
		ORDER BY version DESC
		LIMIT 1
	`
	return scanTemplate(r.pool.QueryRow(ctx, query, tenantID, slug))
}

func (r *templateRepo) GetByID(ctx context.Context, tenantID, id string) (*repository.TemplateRecord, error) {
	const query = `
		SELECT ` + templateCols + `
		FROM email_template
		WHERE tenant_id = $1 AND id = $2 AND active
	`
	return scanTemplate(r.pool.QueryRow(ctx, query, tenantID, id))
}

func (r *templateRepo) InsertVersion(ctx context.Context, rec *repository.TemplateRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock por (tenant, slug): el cálculo de la próxima versión y el insert
	// son atómicos frente a inserts concurrentes del mismo slug. El lock se
	// libera solo al cerrar la transacción.
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || '/' || $2))`,
		rec.TenantID, rec.Slug,
	); err != nil {
		return fmt.Errorf("pg: advisory lock: %w", err)
	}

	if rec.Version == 0 {
		const next = `
			SELECT COALESCE(MAX(version), 0) + 1
			FROM email_template
			WHERE tenant_id = $1 AND slug = $2
		`
		if err := tx.QueryRow(ctx, next, rec.TenantID, rec.Slug).Scan(&rec.Version); err != nil {
			return fmt.Errorf("pg: next version: %w", err)
		}
	}

	const insert = `
		INSERT INTO email_template (tenant_id, slug, name, engine, subject, body, text_body, version, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, insert,
		rec.TenantID, rec.Slug, rec.Name, rec.Engine,
		rec.Subject, rec.Body, rec.TextBody, rec.Version, rec.Active,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("pg: insert template version: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *templateRepo) UpdateMeta(ctx context.Context, tenantID, slug, name string, active bool) error {
	const query = `
		UPDATE email_template SET name = $3, active = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND slug = $2
	`
	tag, err := r.pool.Exec(ctx, query, tenantID, slug, name, active)
	if err != nil {
		return fmt.Errorf("pg: update template meta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *templateRepo) Deactivate(ctx context.Context, tenantID, slug string) error {
	const query = `
		UPDATE email_template SET active = false, updated_at = NOW()
		WHERE tenant_id = $1 AND slug = $2
	`
	tag, err := r.pool.Exec(ctx, query, tenantID, slug)
	if err != nil {
		return fmt.Errorf("pg: deactivate template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *templateRepo) CountActive(ctx context.Context, tenantID string) (int, error) {
	const query = `
		SELECT COUNT(DISTINCT slug) FROM email_template
		WHERE tenant_id = $1 AND active
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pg: count active templates: %w", err)
	}
	return count, nil
}

func (r *templateRepo) ListVersions(ctx context.Context, tenantID, slug string) ([]repository.TemplateRecord, error) {
	const query = `
		SELECT ` + templateCols + `
		FROM email_template
		WHERE tenant_id = $1 AND slug = $2
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, tenantID, slug)
	if err != nil {
		return nil, fmt.Errorf("pg: list template versions: %w", err)
	}
	defer rows.Close()

	var out []repository.TemplateRecord
	for rows.Next() {
		rec, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg: list template versions: %w", err)
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out, nil
}
