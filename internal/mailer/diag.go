package mailer

import (
	"errors"
	"net"
	"strings"
)

// Classify traduce un error crudo de transporte a un *DeliveryError.
//
// Reintentables: timeouts de red, conexión rechazada/reseteada, fallas
// temporales de DNS y las respuestas SMTP 421, 450, 451 y 452. Todo lo
// demás (auth, TLS, destinatario inválido, rechazos de política) es
// permanente: reintentar no lo arregla.
func Classify(err error) *DeliveryError {
	if err == nil {
		return nil
	}
	s := strings.ToLower(err.Error())

	// timeouts
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &DeliveryError{Code: "timeout", Transient: true, Err: err}
	}
	if strings.Contains(s, "timeout") || strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "deadline exceeded") {
		return &DeliveryError{Code: "timeout", Transient: true, Err: err}
	}

	// DNS temporal (SERVFAIL y similares). NXDOMAIN es permanente.
	var de *net.DNSError
	if errors.As(err, &de) {
		if de.IsTemporary || de.IsTimeout {
			return &DeliveryError{Code: "dial", Transient: true, Err: err}
		}
		return &DeliveryError{Code: "dial", Transient: false, Err: err}
	}

	// conexión rechazada/reseteada
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "broken pipe") ||
		strings.Contains(s, "connectex:") { // windows
		return &DeliveryError{Code: "dial", Transient: true, Err: err}
	}

	// respuestas SMTP 4xx reintentables
	if hasSMTPCode(s, "421") || hasSMTPCode(s, "450") ||
		hasSMTPCode(s, "451") || hasSMTPCode(s, "452") ||
		strings.Contains(s, "try again later") ||
		strings.Contains(s, "temporarily unavailable") ||
		strings.Contains(s, "rate limit") {
		return &DeliveryError{Code: "rate_limited", Transient: true, Err: err}
	}

	// auth (credenciales/permiso)
	if strings.Contains(s, "5.7.8") || hasSMTPCode(s, "535") ||
		strings.Contains(s, "username and password not accepted") ||
		strings.Contains(s, "authentication failed") {
		return &DeliveryError{Code: "auth", Transient: false, Err: err}
	}

	// tls/handshake/cert
	if strings.Contains(s, "x509:") ||
		strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")) {
		return &DeliveryError{Code: "tls", Transient: false, Err: err}
	}

	// destinatario inválido
	if strings.Contains(s, "5.1.1") || strings.Contains(s, "user unknown") ||
		strings.Contains(s, "mailbox not found") {
		return &DeliveryError{Code: "invalid_recipient", Transient: false, Err: err}
	}

	// políticas/DMARC/SPF/rechazos 5.7.1
	if strings.Contains(s, "5.7.1") ||
		strings.Contains(s, "message rejected") ||
		strings.Contains(s, "dmarc") || strings.Contains(s, "spf") {
		return &DeliveryError{Code: "rejected", Transient: false, Err: err}
	}

	return &DeliveryError{Code: "unknown", Transient: false, Err: err}
}

// hasSMTPCode matchea un reply code al inicio del texto o precedido de
// espacio, para no confundirlo con un puerto o un enhanced code.
func hasSMTPCode(s, code string) bool {
	if strings.HasPrefix(s, code+" ") || strings.HasPrefix(s, code+"-") {
		return true
	}
	return strings.Contains(s, " "+code+" ") || strings.Contains(s, ": "+code)
}
