package repository

import (
	"context"
	"time"
)

// Engine identifica la gramática de compilación del body de un template.
type Engine string

const (
	// EnginePlain expande el body con la gramática de sustitución (handlebars).
	EnginePlain Engine = "plain"

	// EngineMarkup expande el body y luego compila el vocabulario de layout
	// responsivo a HTML standalone (tablas + fallbacks de clientes).
	EngineMarkup Engine = "markup"
)

// Valid indica si el engine es uno de los conocidos.
func (e Engine) Valid() bool {
	return e == EnginePlain || e == EngineMarkup
}

// TemplateRecord es una versión inmutable de un template de email.
//
// (TenantID, Slug, Version) es único. Los campos que afectan el render
// (Body, Subject, TextBody, Engine) nunca mutan: una edición crea una
// versión nueva. Name y Active sí pueden mutar in-place.
type TemplateRecord struct {
	ID       string // UUID de esta versión
	TenantID string
	Slug     string // identificador API-facing, estable entre versiones
	Name     string
	Engine   Engine
	Subject  string // template del subject (misma gramática que Body)
	Body     string
	TextBody string // template de texto plano opcional
	Version  int    // arranca en 1 por slug, monótono
	Active   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateRepository define la persistencia de templates versionados.
type TemplateRepository interface {
	// GetBySlug retorna una versión de un template del tenant.
	// Si version es nil retorna la versión activa más alta.
	// Si version está seteado, match exacto (y debe estar activa).
	// Retorna ErrNotFound si no hay match.
	GetBySlug(ctx context.Context, tenantID, slug string, version *int) (*TemplateRecord, error)

	// GetByID retorna la versión exacta identificada por su UUID, scoped al
	// tenant. Debe estar activa. Retorna ErrNotFound si no hay match.
	GetByID(ctx context.Context, tenantID, id string) (*TemplateRecord, error)

	// InsertVersion inserta la próxima versión de (tenant, slug) de forma
	// atómica: el cálculo de Version y el insert ocurren bajo el mismo lock
	// por (tenant, slug), nunca como read-then-write separados.
	// Completa ID, Version y timestamps en rec.
	// Retorna ErrConflict si rec.Version fue forzado y ya existe.
	InsertVersion(ctx context.Context, rec *TemplateRecord) error

	// UpdateMeta muta in-place los campos que no afectan el render
	// (Name, Active) de TODAS las versiones del slug.
	UpdateMeta(ctx context.Context, tenantID, slug, name string, active bool) error

	// Deactivate marca todas las versiones del slug como inactivas
	// (soft delete: desaparece del despacho pero la historia queda en la
	// tabla y sigue visible vía ListVersions).
	Deactivate(ctx context.Context, tenantID, slug string) error

	// CountActive cuenta los slugs con al menos una versión activa del tenant.
	CountActive(ctx context.Context, tenantID string) (int, error)

	// ListVersions retorna todas las versiones de un slug, la más nueva primero.
	ListVersions(ctx context.Context, tenantID, slug string) ([]TemplateRecord, error)
}
