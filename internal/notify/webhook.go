// Package notify publica eventos de despacho hacia webhooks de tenants.
// La entrega es fire-and-forget: un webhook caído jamás afecta el resultado
// del despacho que lo originó.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dropDatabas3/mailroom/internal/observability/logger"
)

// DefaultTimeout acota cada POST de notificación.
const DefaultTimeout = 5 * time.Second

// TemplateRef identifica la versión de template que produjo el contenido
// despachado, junto con la salida renderizada.
type TemplateRef struct {
	Slug     string `json:"slug"`
	Version  int    `json:"version"`
	Rendered string `json:"rendered"` // HTML final enviado
}

// Event es el payload JSON que recibe el webhook del tenant.
type Event struct {
	Event      string       `json:"event"` // dispatch.sent | dispatch.failed
	Tenant     string       `json:"tenant"`
	LogID      string       `json:"log_id"`
	MessageID  string       `json:"message_id,omitempty"`
	Recipients []string     `json:"recipients"`
	Subject    string       `json:"subject"`
	Template   *TemplateRef `json:"template,omitempty"` // solo si el template renderizó
	Error      string       `json:"error,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Notifier publica eventos de despacho.
type Notifier interface {
	// Notify dispara el evento hacia url sin bloquear al caller.
	Notify(ctx context.Context, url string, ev Event)
}

// WebhookNotifier implementa Notifier sobre HTTP POST.
type WebhookNotifier struct {
	client *http.Client
}

// NewWebhook crea un WebhookNotifier. timeout 0 usa DefaultTimeout.
func NewWebhook(timeout time.Duration) *WebhookNotifier {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
	}
}

// Notify postea el evento en una goroutine propia. El contexto del request
// que lo originó NO se propaga: el despacho ya terminó y su cancelación no
// debe abortar la notificación.
func (n *WebhookNotifier) Notify(ctx context.Context, url string, ev Event) {
	if url == "" {
		return
	}
	log := logger.From(ctx).With(
		logger.Component("notify"),
		logger.LogID(ev.LogID),
		logger.String("url", url),
	)

	go func() {
		body, err := json.Marshal(ev)
		if err != nil {
			log.Warn("webhook payload marshal failed", logger.Err(err))
			return
		}

		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			log.Warn("webhook request build failed", logger.Err(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "mailroom-webhook/1.0")
		req.Header.Set("X-Mailroom-Event", ev.Event)

		resp, err := n.client.Do(req)
		if err != nil {
			log.Warn("webhook delivery failed", logger.Err(err))
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body) //nolint:errcheck

		if resp.StatusCode >= 300 {
			log.Warn("webhook rejected", logger.Int("status", resp.StatusCode))
			return
		}
		log.Debug("webhook delivered", logger.Int("status", resp.StatusCode))
	}()
}

// Noop es un Notifier que descarta todos los eventos.
type Noop struct{}

func (Noop) Notify(context.Context, string, Event) {}
