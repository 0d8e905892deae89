// Package templates implementa el ciclo de vida de templates versionados:
// alta, edición copy-on-write, soft delete y cuota de activos por tenant.
package templates

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aymerick/raymond"
	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/dropDatabas3/mailroom/internal/rendercache"
)

// DefaultMaxActive es la cuota de templates activos por tenant.
const DefaultMaxActive = 50

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// Service orquesta las operaciones de template sobre el repositorio y
// mantiene coherente el render cache.
type Service struct {
	repo      repository.TemplateRepository
	cache     rendercache.Cache
	maxActive int
}

// Config configura el Service.
type Config struct {
	Repo      repository.TemplateRepository // requerido
	Cache     rendercache.Cache             // requerido
	MaxActive int                           // 0 => DefaultMaxActive
}

// New crea un Service.
func New(cfg Config) *Service {
	if cfg.MaxActive == 0 {
		cfg.MaxActive = DefaultMaxActive
	}
	return &Service{
		repo:      cfg.Repo,
		cache:     cfg.Cache,
		maxActive: cfg.MaxActive,
	}
}

// CreateInput son los datos de alta de un template.
type CreateInput struct {
	Slug     string
	Name     string
	Engine   repository.Engine
	Subject  string
	Body     string
	TextBody string
}

// EditInput son los cambios de una edición. Los punteros nil significan
// "sin cambio". Subject/Body/TextBody/Engine afectan el render: si alguno
// cambia se crea una versión nueva. Name y Active mutan in-place.
type EditInput struct {
	Name     *string
	Active   *bool
	Engine   *repository.Engine
	Subject  *string
	Body     *string
	TextBody *string
}

// Create da de alta un slug nuevo como versión 1 activa.
//
// Retorna ErrConflict si el slug ya existe para el tenant (aunque esté
// desactivado: un slug nunca se recicla) y ErrQuotaExceeded si el tenant
// ya está en su cuota de activos.
func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (*repository.TemplateRecord, error) {
	log := logger.From(ctx).With(
		logger.Component("templates"),
		logger.TenantID(tenantID),
		logger.TemplateSlug(in.Slug),
	)

	if !slugRe.MatchString(in.Slug) {
		return nil, fmt.Errorf("%w: slug %q", repository.ErrInvalidInput, in.Slug)
	}
	if !in.Engine.Valid() {
		return nil, fmt.Errorf("%w: engine %q", repository.ErrInvalidInput, in.Engine)
	}
	if in.Subject == "" || in.Body == "" {
		return nil, fmt.Errorf("%w: subject and body are required", repository.ErrInvalidInput)
	}
	if err := checkSyntax(in.Subject, in.Body, in.TextBody); err != nil {
		return nil, err
	}

	if _, err := s.repo.ListVersions(ctx, tenantID, in.Slug); err == nil {
		return nil, fmt.Errorf("%w: slug %q already exists", repository.ErrConflict, in.Slug)
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	active, err := s.repo.CountActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if active >= s.maxActive {
		log.Warn("active template quota reached", logger.Int("limit", s.maxActive))
		return nil, fmt.Errorf("%w: %d active templates (limit %d)", repository.ErrQuotaExceeded, active, s.maxActive)
	}

	rec := &repository.TemplateRecord{
		TenantID: tenantID,
		Slug:     in.Slug,
		Name:     in.Name,
		Engine:   in.Engine,
		Subject:  in.Subject,
		Body:     in.Body,
		TextBody: in.TextBody,
		Version:  1,
		Active:   true,
	}
	if err := s.repo.InsertVersion(ctx, rec); err != nil {
		return nil, err
	}

	log.Info("template created", logger.TemplateVersion(rec.Version))
	return rec, nil
}

// Edit aplica cambios a un slug existente.
//
// Si algún campo que afecta el render cambia de verdad, se inserta una
// versión nueva (las anteriores quedan intactas). Cambios de Name/Active
// mutan todas las versiones in-place. Una edición que no cambia nada es
// un no-op que retorna la versión vigente.
func (s *Service) Edit(ctx context.Context, tenantID, slug string, in EditInput) (*repository.TemplateRecord, error) {
	log := logger.From(ctx).With(
		logger.Component("templates"),
		logger.TenantID(tenantID),
		logger.TemplateSlug(slug),
	)

	versions, err := s.repo.ListVersions(ctx, tenantID, slug)
	if err != nil {
		return nil, err
	}
	latest := versions[0] // la más nueva primero

	next := latest
	if in.Engine != nil {
		if !in.Engine.Valid() {
			return nil, fmt.Errorf("%w: engine %q", repository.ErrInvalidInput, *in.Engine)
		}
		next.Engine = *in.Engine
	}
	if in.Subject != nil {
		next.Subject = *in.Subject
	}
	if in.Body != nil {
		next.Body = *in.Body
	}
	if in.TextBody != nil {
		next.TextBody = *in.TextBody
	}

	contentChanged := next.Engine != latest.Engine ||
		next.Subject != latest.Subject ||
		next.Body != latest.Body ||
		next.TextBody != latest.TextBody

	if contentChanged {
		if next.Subject == "" || next.Body == "" {
			return nil, fmt.Errorf("%w: subject and body are required", repository.ErrInvalidInput)
		}
		if err := checkSyntax(next.Subject, next.Body, next.TextBody); err != nil {
			return nil, err
		}
		next.Version = 0 // el repo asigna la siguiente
		if err := s.repo.InsertVersion(ctx, &next); err != nil {
			return nil, err
		}
		// Las salidas cacheadas de las versiones previas quedan obsoletas
		// frente al contenido nuevo.
		s.invalidate(ctx, versions)
		log.Info("template version created", logger.TemplateVersion(next.Version))
	}

	if in.Name != nil || in.Active != nil {
		name := next.Name
		if in.Name != nil {
			name = *in.Name
		}
		active := next.Active
		if in.Active != nil {
			active = *in.Active
		}
		if err := s.repo.UpdateMeta(ctx, tenantID, slug, name, active); err != nil {
			return nil, err
		}
		next.Name = name
		next.Active = active
		if in.Active != nil && !*in.Active {
			s.invalidate(ctx, versions)
		}
	}

	if !contentChanged && in.Name == nil && in.Active == nil {
		log.Debug("edit was a no-op")
	}
	return &next, nil
}

// Delete desactiva todas las versiones del slug (soft delete) y purga sus
// salidas cacheadas. La historia sigue disponible vía ListVersions.
func (s *Service) Delete(ctx context.Context, tenantID, slug string) error {
	versions, err := s.repo.ListVersions(ctx, tenantID, slug)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, tenantID, slug); err != nil {
		return err
	}
	s.invalidate(ctx, versions)

	logger.From(ctx).Info("template deactivated",
		logger.Component("templates"),
		logger.TenantID(tenantID),
		logger.TemplateSlug(slug),
	)
	return nil
}

// Get retorna una versión (la activa más alta si version es nil).
func (s *Service) Get(ctx context.Context, tenantID, slug string, version *int) (*repository.TemplateRecord, error) {
	return s.repo.GetBySlug(ctx, tenantID, slug, version)
}

// ListVersions retorna la historia completa del slug, la más nueva primero.
func (s *Service) ListVersions(ctx context.Context, tenantID, slug string) ([]repository.TemplateRecord, error) {
	return s.repo.ListVersions(ctx, tenantID, slug)
}

func (s *Service) invalidate(ctx context.Context, versions []repository.TemplateRecord) {
	for _, rec := range versions {
		s.cache.InvalidateTemplate(ctx, rec.ID)
	}
}

// checkSyntax valida la gramática de sustitución de cada pieza. La
// estructura del vocabulario de layout se valida recién al render, cuando
// los placeholders ya están expandidos.
func checkSyntax(subject, body, textBody string) error {
	for _, piece := range []struct{ name, src string }{
		{"subject", subject},
		{"body", body},
		{"text_body", textBody},
	} {
		if piece.src == "" {
			continue
		}
		if _, err := raymond.Parse(piece.src); err != nil {
			return fmt.Errorf("%w: %s: %v", repository.ErrInvalidInput, piece.name, err)
		}
	}
	return nil
}
