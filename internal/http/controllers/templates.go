package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	apierr "github.com/dropDatabas3/mailroom/internal/http/errors"
	"github.com/dropDatabas3/mailroom/internal/http/helpers"
	"github.com/dropDatabas3/mailroom/internal/resolver"
	"github.com/dropDatabas3/mailroom/internal/templates"
)

// TemplatesController expone el ciclo de vida de templates.
type TemplatesController struct {
	Service  *templates.Service
	Resolver *resolver.Resolver
}

type templateOut struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Engine    string    `json:"engine"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	TextBody  string    `json:"text_body,omitempty"`
	Version   int       `json:"version"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTemplateOut(rec *repository.TemplateRecord) templateOut {
	return templateOut{
		ID:        rec.ID,
		Slug:      rec.Slug,
		Name:      rec.Name,
		Engine:    string(rec.Engine),
		Subject:   rec.Subject,
		Body:      rec.Body,
		TextBody:  rec.TextBody,
		Version:   rec.Version,
		Active:    rec.Active,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (c *TemplatesController) tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenant, err := c.Resolver.ResolveTenant(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		apierr.WriteError(w, apierr.ErrTenantNotFound.WithCause(err))
		return "", false
	}
	return tenant.ID, true
}

type createTemplateIn struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Engine   string `json:"engine"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	TextBody string `json:"text_body"`
}

// Create maneja POST /v1/tenants/{tenant}/templates.
func (c *TemplatesController) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenantID(w, r)
	if !ok {
		return
	}
	var in createTemplateIn
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	if in.Engine == "" {
		in.Engine = string(repository.EnginePlain)
	}

	rec, err := c.Service.Create(r.Context(), tenantID, templates.CreateInput{
		Slug:     in.Slug,
		Name:     in.Name,
		Engine:   repository.Engine(in.Engine),
		Subject:  in.Subject,
		Body:     in.Body,
		TextBody: in.TextBody,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, toTemplateOut(rec))
}

// Get maneja GET /v1/tenants/{tenant}/templates/{slug} (?version=N).
func (c *TemplatesController) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenantID(w, r)
	if !ok {
		return
	}

	var version *int
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			apierr.WriteError(w, apierr.ErrBadRequest.WithDetail("version must be a positive integer"))
			return
		}
		version = &v
	}

	rec, err := c.Resolver.ResolveTemplate(r.Context(), tenantID, chi.URLParam(r, "slug"), version)
	if err != nil {
		if repository.IsNotFound(err) {
			apierr.WriteError(w, apierr.ErrTemplateNotFound.WithCause(err))
			return
		}
		apierr.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toTemplateOut(rec))
}

type editTemplateIn struct {
	Name     *string `json:"name"`
	Active   *bool   `json:"active"`
	Engine   *string `json:"engine"`
	Subject  *string `json:"subject"`
	Body     *string `json:"body"`
	TextBody *string `json:"text_body"`
}

// Edit maneja PATCH /v1/tenants/{tenant}/templates/{slug}.
func (c *TemplatesController) Edit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenantID(w, r)
	if !ok {
		return
	}
	var in editTemplateIn
	if !helpers.ReadJSON(w, r, &in) {
		return
	}

	edit := templates.EditInput{
		Name:     in.Name,
		Active:   in.Active,
		Subject:  in.Subject,
		Body:     in.Body,
		TextBody: in.TextBody,
	}
	if in.Engine != nil {
		engine := repository.Engine(*in.Engine)
		edit.Engine = &engine
	}

	rec, err := c.Service.Edit(r.Context(), tenantID, chi.URLParam(r, "slug"), edit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toTemplateOut(rec))
}

// Delete maneja DELETE /v1/tenants/{tenant}/templates/{slug} (soft).
func (c *TemplatesController) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenantID(w, r)
	if !ok {
		return
	}
	if err := c.Service.Delete(r.Context(), tenantID, chi.URLParam(r, "slug")); err != nil {
		apierr.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListVersions maneja GET /v1/tenants/{tenant}/templates/{slug}/versions.
func (c *TemplatesController) ListVersions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := c.tenantID(w, r)
	if !ok {
		return
	}
	versions, err := c.Service.ListVersions(r.Context(), tenantID, chi.URLParam(r, "slug"))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	out := make([]templateOut, 0, len(versions))
	for i := range versions {
		out = append(out, toTemplateOut(&versions[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"versions": out})
}
