// Package resolver resuelve tenants y versiones de templates para el
// despacho. Colapsa lookups concurrentes idénticos con singleflight: bajo
// ráfagas de envíos al mismo template, una sola consulta viaja al store.
package resolver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Resolver resuelve tenants por slug/UUID y templates por (tenant, slug,
// versión opcional). Seguro para uso concurrente.
type Resolver struct {
	templates repository.TemplateRepository
	tenants   repository.TenantRepository

	tenantSF   singleflight.Group
	templateSF singleflight.Group
}

// New crea un Resolver sobre los repositorios dados.
func New(templates repository.TemplateRepository, tenants repository.TenantRepository) *Resolver {
	return &Resolver{
		templates: templates,
		tenants:   tenants,
	}
}

// ResolveTenant resuelve un tenant por UUID o slug.
func (r *Resolver) ResolveTenant(ctx context.Context, slugOrID string) (*repository.Tenant, error) {
	v, err, _ := r.tenantSF.Do(slugOrID, func() (any, error) {
		if id, err := uuid.Parse(slugOrID); err == nil {
			if t, err := r.tenants.GetByID(ctx, id.String()); err == nil {
				return t, nil
			}
		}
		return r.tenants.GetBySlug(ctx, slugOrID)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve tenant %q: %w", slugOrID, err)
	}
	return v.(*repository.Tenant), nil
}

// ResolveTemplate resuelve una versión concreta de un template.
//
// Sin versión pineada retorna la versión activa más alta del slug. Con
// versión pineada el match es exacto y la versión debe estar activa: los
// templates desactivados no son despachables ni siquiera por pin.
// Retorna repository.ErrNotFound si no hay match.
func (r *Resolver) ResolveTemplate(ctx context.Context, tenantID, slug string, version *int) (*repository.TemplateRecord, error) {
	key := tenantID + "/" + slug
	if version != nil {
		key += "@" + strconv.Itoa(*version)
	}

	v, err, shared := r.templateSF.Do(key, func() (any, error) {
		return r.templates.GetBySlug(ctx, tenantID, slug, version)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.From(ctx).Debug("template lookup coalesced",
			logger.Component("resolver"),
			logger.TemplateSlug(slug),
		)
	}
	return v.(*repository.TemplateRecord), nil
}

// ResolveTemplateByID resuelve la versión exacta identificada por su UUID.
// Igual que el pin por versión, la versión debe estar activa.
func (r *Resolver) ResolveTemplateByID(ctx context.Context, tenantID, id string) (*repository.TemplateRecord, error) {
	v, err, _ := r.templateSF.Do(tenantID+"#"+id, func() (any, error) {
		return r.templates.GetByID(ctx, tenantID, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*repository.TemplateRecord), nil
}
