package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierr "github.com/dropDatabas3/mailroom/internal/http/errors"
	"github.com/dropDatabas3/mailroom/internal/http/helpers"
	"github.com/dropDatabas3/mailroom/internal/render"
	"github.com/dropDatabas3/mailroom/internal/resolver"
)

// RenderController renderiza templates sin despachar (dry-run).
type RenderController struct {
	Resolver *resolver.Resolver
	Engine   *render.Engine
}

type renderIn struct {
	Template string         `json:"template"`
	Version  *int           `json:"template_version,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

type renderOut struct {
	Subject  string   `json:"subject"`
	HTML     string   `json:"html"`
	Text     string   `json:"text"`
	CacheHit bool     `json:"cache_hit"`
	Warnings []string `json:"warnings,omitempty"`
}

// Render maneja POST /v1/tenants/{tenant}/render.
func (c *RenderController) Render(w http.ResponseWriter, r *http.Request) {
	var in renderIn
	if !helpers.ReadJSON(w, r, &in) {
		return
	}
	if in.Template == "" {
		apierr.WriteError(w, apierr.ErrBadRequest.WithDetail("template is required"))
		return
	}

	tenant, err := c.Resolver.ResolveTenant(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		apierr.WriteError(w, apierr.ErrTenantNotFound.WithCause(err))
		return
	}

	rec, err := c.Resolver.ResolveTemplate(r.Context(), tenant.ID, in.Template, in.Version)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	res, err := c.Engine.Render(r.Context(), rec, in.Data)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, renderOut{
		Subject:  res.Subject,
		HTML:     res.HTML,
		Text:     res.Text,
		CacheHit: res.CacheHit,
		Warnings: res.Warnings,
	})
}
