// Package errors define el formato de error JSON de la API y el mapeo
// desde las sentinelas del dominio.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/mailer"
	"github.com/dropDatabas3/mailroom/internal/render"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta HTTP para err. Acepta *AppError,
// sentinelas del dominio y errores genéricos.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// FromError convierte cualquier error en un *AppError, traduciendo la
// taxonomía del dominio a códigos HTTP.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	switch {
	case repository.IsNotFound(err):
		return ErrNotFound.WithCause(err).WithDetail(err.Error())
	case repository.IsConflict(err):
		return ErrConflict.WithCause(err).WithDetail(err.Error())
	case repository.IsQuotaExceeded(err):
		return ErrQuotaExceeded.WithCause(err).WithDetail(err.Error())
	case repository.IsInvalidInput(err):
		return ErrBadRequest.WithCause(err).WithDetail(err.Error())
	case render.IsCompileError(err):
		return ErrRenderFailed.WithCause(err).WithDetail(err.Error())
	}

	var de *mailer.DeliveryError
	if stderrors.As(err, &de) {
		return ErrDeliveryFailed.WithCause(err).WithDetail(de.Code)
	}

	return ErrInternalServerError.WithCause(err)
}
