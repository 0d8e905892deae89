// Package controllers implementa los handlers HTTP de la API.
package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/mailroom/internal/dispatch"
	apierr "github.com/dropDatabas3/mailroom/internal/http/errors"
	"github.com/dropDatabas3/mailroom/internal/http/helpers"
)

// DispatchController expone el pipeline de despacho.
type DispatchController struct {
	Pipeline *dispatch.Pipeline
}

type dispatchOut struct {
	MessageID string   `json:"message_id"`
	LogID     string   `json:"log_id"`
	Mode      string   `json:"mode"`
	CacheHit  bool     `json:"cache_hit"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Send maneja POST /v1/tenants/{tenant}/dispatch.
func (c *DispatchController) Send(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")

	var req dispatch.Request
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	rcpt, err := c.Pipeline.Dispatch(r.Context(), tenant, &req)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dispatchOut{
		MessageID: rcpt.MessageID,
		LogID:     rcpt.LogID,
		Mode:      string(rcpt.Mode),
		CacheHit:  rcpt.CacheHit,
		Warnings:  rcpt.Warnings,
	})
}
