// Package router arma el router chi con todas las rutas del servicio.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/mailroom/internal/http/controllers"
	"github.com/dropDatabas3/mailroom/internal/http/helpers"
	mw "github.com/dropDatabas3/mailroom/internal/http/middlewares"
)

// Pinger chequea la salud del backend de datos.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps contiene las dependencias del router.
type Deps struct {
	Dispatch  *controllers.DispatchController
	Render    *controllers.RenderController
	Templates *controllers.TemplatesController
	Admin     *controllers.AdminController

	// AdminAPIKey protege /v1/admin; vacío deshabilita esos endpoints.
	AdminAPIKey string

	// Store es opcional; si está, /healthz la incluye en el chequeo.
	Store Pinger
}

// New construye el router completo.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())

	r.Get("/healthz", healthHandler(deps.Store))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tenants/{tenant}", func(r chi.Router) {
			r.Post("/dispatch", deps.Dispatch.Send)
			r.Post("/render", deps.Render.Render)

			r.Route("/templates", func(r chi.Router) {
				r.Post("/", deps.Templates.Create)
				r.Route("/{slug}", func(r chi.Router) {
					r.Get("/", deps.Templates.Get)
					r.Patch("/", deps.Templates.Edit)
					r.Delete("/", deps.Templates.Delete)
					r.Get("/versions", deps.Templates.ListVersions)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.WithAdminKey(deps.AdminAPIKey))
			r.Post("/cache/clear", deps.Admin.ClearCache)
			r.Delete("/cache/templates/{id}", deps.Admin.InvalidateTemplate)
		})
	})

	return r
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"store":  err.Error(),
				})
				return
			}
		}
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
