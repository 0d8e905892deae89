package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
)

type tenantRepo struct{ pool *pgxpool.Pool }

// tenantSettings es la forma JSONB de la columna settings.
type tenantSettings struct {
	SMTP *struct {
		Host        string `json:"host"`
		Port        int    `json:"port"`
		Username    string `json:"username"`
		PasswordEnc string `json:"password_enc"`
		FromEmail   string `json:"from_email"`
		UseTLS      bool   `json:"use_tls"`
	} `json:"smtp,omitempty"`
	Webhook *struct {
		URL string `json:"url"`
	} `json:"webhook,omitempty"`
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	const query = `
		SELECT id, slug, name, settings, created_at, updated_at
		FROM tenant WHERE slug = $1
	`
	return r.scan(r.pool.QueryRow(ctx, query, slug))
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	const query = `
		SELECT id, slug, name, settings, created_at, updated_at
		FROM tenant WHERE id = $1
	`
	return r.scan(r.pool.QueryRow(ctx, query, id))
}

func (r *tenantRepo) scan(row pgx.Row) (*repository.Tenant, error) {
	var t repository.Tenant
	var raw []byte
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &raw, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan tenant: %w", err)
	}

	var settings tenantSettings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, fmt.Errorf("pg: tenant %s settings: %w", t.Slug, err)
		}
	}
	if settings.SMTP != nil {
		t.Settings.SMTP = &repository.SMTPSettings{
			Host:        settings.SMTP.Host,
			Port:        settings.SMTP.Port,
			Username:    settings.SMTP.Username,
			PasswordEnc: settings.SMTP.PasswordEnc,
			FromEmail:   settings.SMTP.FromEmail,
			UseTLS:      settings.SMTP.UseTLS,
		}
	}
	if settings.Webhook != nil {
		t.Settings.Webhook = &repository.WebhookSettings{URL: settings.Webhook.URL}
	}
	return &t, nil
}
