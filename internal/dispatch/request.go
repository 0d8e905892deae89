package dispatch

import (
	"fmt"
	"net/mail"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
)

// Mode es la vía de construcción del contenido de un despacho.
type Mode string

const (
	// ModeTemplate renderiza un template versionado del tenant.
	ModeTemplate Mode = "template"

	// ModeLegacy usa subject/html crudos del request con sustitución
	// simple de variables (sin lógica).
	ModeLegacy Mode = "legacy"
)

// Request es un pedido de despacho. Referencia un template del tenant o
// trae el contenido crudo; si trae ambos, el template manda y el contenido
// crudo queda como fallback si el render falla.
type Request struct {
	To      []string          `json:"to"`
	Cc      []string          `json:"cc,omitempty"`
	Bcc     []string          `json:"bcc,omitempty"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// Modo template: por slug (con versión opcional) o por UUID de una
	// versión concreta. Si vienen ambos, el ID manda.
	TemplateSlug    string `json:"template,omitempty"`
	TemplateVersion *int   `json:"template_version,omitempty"`
	TemplateID      string `json:"template_id,omitempty"`

	// Modo legacy / fallback
	Subject string `json:"subject,omitempty"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`

	// Variables para el template o la sustitución legacy.
	Data map[string]any `json:"data,omitempty"`
}

// Mode decide la vía: template si hay slug o ID referenciado, legacy si no.
func (r *Request) Mode() Mode {
	if r.TemplateSlug != "" || r.TemplateID != "" {
		return ModeTemplate
	}
	return ModeLegacy
}

// HasRawContent indica si el request trae contenido crudo utilizable:
// subject más al menos un cuerpo (html o texto plano).
func (r *Request) HasRawContent() bool {
	return r.Subject != "" && (r.HTML != "" || r.Text != "")
}

// Validate chequea que el request sea despachable.
func (r *Request) Validate() error {
	if len(r.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", repository.ErrInvalidInput)
	}
	for _, lists := range [][]string{r.To, r.Cc, r.Bcc} {
		for _, addr := range lists {
			if _, err := mail.ParseAddress(addr); err != nil {
				return fmt.Errorf("%w: address %q: %v", repository.ErrInvalidInput, addr, err)
			}
		}
	}
	if r.ReplyTo != "" {
		if _, err := mail.ParseAddress(r.ReplyTo); err != nil {
			return fmt.Errorf("%w: reply_to %q: %v", repository.ErrInvalidInput, r.ReplyTo, err)
		}
	}

	switch r.Mode() {
	case ModeTemplate:
		if r.TemplateVersion != nil && *r.TemplateVersion < 1 {
			return fmt.Errorf("%w: template_version must be >= 1", repository.ErrInvalidInput)
		}
		if r.TemplateID != "" && r.TemplateVersion != nil {
			return fmt.Errorf("%w: template_id already pins a version, template_version is not allowed", repository.ErrInvalidInput)
		}
	case ModeLegacy:
		if !r.HasRawContent() {
			return fmt.Errorf("%w: either template or subject plus html/text is required", repository.ErrInvalidInput)
		}
	}
	return nil
}
