package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/mailroom/internal/http/helpers"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/dropDatabas3/mailroom/internal/rendercache"
)

// AdminController expone operaciones administrativas sobre el render cache.
type AdminController struct {
	Cache rendercache.Cache
}

// ClearCache maneja POST /v1/admin/cache/clear.
func (c *AdminController) ClearCache(w http.ResponseWriter, r *http.Request) {
	c.Cache.Clear(r.Context())
	logger.From(r.Context()).Info("render cache cleared", logger.Component("admin"))
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// InvalidateTemplate maneja DELETE /v1/admin/cache/templates/{id}.
func (c *AdminController) InvalidateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n := c.Cache.InvalidateTemplate(r.Context(), id)
	logger.From(r.Context()).Info("render cache invalidated",
		logger.Component("admin"),
		logger.String("template_id", id),
		logger.Int("entries", n),
	)
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"invalidated": n})
}
