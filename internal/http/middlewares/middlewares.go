// Package middlewares contiene los middlewares HTTP del servicio.
package middlewares

import (
	"crypto/subtle"
	"net/http"
	"time"

	apierr "github.com/dropDatabas3/mailroom/internal/http/errors"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/google/uuid"
)

// Middleware es la firma estándar de un middleware HTTP.
type Middleware func(http.Handler) http.Handler

// WithRecover captura panics y devuelve un error 500 en lugar de crashear.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Op("recover"),
						logger.Any("panic", rec),
					)
					apierr.WriteError(w, apierr.ErrInternalServerError.WithDetail("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WithRequestID asigna un request id (o respeta el del header entrante),
// lo propaga por contexto junto con un logger ya scopeado, y lo devuelve
// en la respuesta.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)

			log := logger.L().With(logger.RequestID(rid))
			ctx := logger.ToContext(r.Context(), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusWriter captura el status code para el access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithLogging emite un access log por request.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.From(r.Context()).Info("http request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", sw.status),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

// WithAdminKey exige el header X-Admin-API-Key. Si key está vacía, los
// endpoints administrativos quedan deshabilitados por completo.
func WithAdminKey(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				apierr.WriteError(w, apierr.ErrUnauthorized.WithDetail("admin API disabled"))
				return
			}
			got := r.Header.Get("X-Admin-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				apierr.WriteError(w, apierr.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
