package mailer

import (
	"errors"
	"fmt"
)

// DeliveryError es un error de transporte ya clasificado.
// Transient indica que un reintento tiene sentido (el servidor o la red
// fallaron de forma temporal); los errores permanentes no se reintentan.
type DeliveryError struct {
	Code      string // timeout|dial|rate_limited|auth|tls|invalid_recipient|rejected|unknown
	Transient bool
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery %s: %v", e.Code, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsTransient reporta si err es un DeliveryError reintentable.
func IsTransient(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Transient
}
