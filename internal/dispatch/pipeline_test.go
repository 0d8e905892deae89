package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/mailer"
	"github.com/dropDatabas3/mailroom/internal/notify"
	"github.com/dropDatabas3/mailroom/internal/render"
	"github.com/dropDatabas3/mailroom/internal/rendercache"
	"github.com/dropDatabas3/mailroom/internal/resolver"
	"github.com/dropDatabas3/mailroom/internal/store/memory"
)

// fakeSender responde según el guion de errores, un elemento por intento.
// Un nil en el guion (o quedarse sin guion) es un envío exitoso.
type fakeSender struct {
	mu       sync.Mutex
	script   []error
	attempts int
	lastMsg  *mailer.Message
}

func (f *fakeSender) Send(_ context.Context, msg *mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.attempts
	f.attempts++
	f.lastMsg = msg
	if i < len(f.script) && f.script[i] != nil {
		return "", mailer.Classify(f.script[i])
	}
	return "<msg-1@test>", nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeSender) last() *mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMsg
}

type fakeProvider struct{ s mailer.Sender }

func (f fakeProvider) GetSender(context.Context, string) (mailer.Sender, error) {
	return f.s, nil
}

// chanNotifier captura el evento y la URL destino.
type chanNotifier struct {
	events chan notify.Event
	urls   chan string
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{
		events: make(chan notify.Event, 4),
		urls:   make(chan string, 4),
	}
}

func (n *chanNotifier) Notify(_ context.Context, url string, ev notify.Event) {
	n.urls <- url
	n.events <- ev
}

type fixture struct {
	pipeline  *Pipeline
	sender    *fakeSender
	logs      *memory.DispatchLogRepository
	notifier  *chanNotifier
	templates *memory.TemplateRepository
}

func newFixture(t *testing.T, script ...error) *fixture {
	t.Helper()

	templates := memory.NewTemplateRepository()
	if err := templates.InsertVersion(context.Background(), &repository.TemplateRecord{
		TenantID: "tenant-1",
		Slug:     "welcome",
		Name:     "Bienvenida",
		Engine:   repository.EnginePlain,
		Subject:  "Hi {{name}}",
		Body:     "<p>Hi {{name}}</p>",
		Active:   true,
	}); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	tenants := memory.NewTenantRepository()
	tenants.Put(&repository.Tenant{ID: "tenant-1", Slug: "acme"})
	tenants.Put(&repository.Tenant{
		ID:   "tenant-2",
		Slug: "hooked",
		Settings: repository.TenantSettings{
			Webhook: &repository.WebhookSettings{URL: "https://hooks.example.com/own"},
		},
	})

	sender := &fakeSender{script: script}
	logs := memory.NewDispatchLogRepository()
	notifier := newChanNotifier()

	p := New(Config{
		Resolver:          resolver.New(templates, tenants),
		Engine:            render.New(render.Config{Cache: rendercache.NewMemory(time.Minute)}),
		Senders:           fakeProvider{s: sender},
		Logs:              logs,
		Notifier:          notifier,
		DefaultWebhookURL: "https://hooks.example.com/default",
		BaseDelay:         10 * time.Millisecond,
	})
	return &fixture{pipeline: p, sender: sender, logs: logs, notifier: notifier, templates: templates}
}

func (f *fixture) waitEvent(t *testing.T) (notify.Event, string) {
	t.Helper()
	select {
	case ev := <-f.notifier.events:
		return ev, <-f.notifier.urls
	case <-time.After(2 * time.Second):
		t.Fatalf("no notification arrived")
		return notify.Event{}, ""
	}
}

func TestDispatch_TemplateMode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rcpt, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "welcome",
		Data:         map[string]any{"name": "Ann"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rcpt.MessageID == "" || rcpt.LogID == "" {
		t.Fatalf("incomplete receipt: %+v", rcpt)
	}
	if rcpt.Mode != ModeTemplate {
		t.Fatalf("mode = %s", rcpt.Mode)
	}

	msg := f.sender.last()
	if msg.Subject != "Hi Ann" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Hi Ann") {
		t.Fatalf("html = %q", msg.HTML)
	}
	if !strings.Contains(msg.Text, "Hi Ann") {
		t.Fatalf("text = %q", msg.Text)
	}

	entry, err := f.logs.Get(context.Background(), rcpt.LogID)
	if err != nil {
		t.Fatalf("log get: %v", err)
	}
	if entry.Status != repository.StatusSent || entry.SentAt == nil {
		t.Fatalf("log = %+v, want sent with SentAt", entry)
	}

	ev, url := f.waitEvent(t)
	if ev.Event != "dispatch.sent" || ev.MessageID == "" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Template == nil || ev.Template.Slug != "welcome" || ev.Template.Version != 1 {
		t.Fatalf("event template = %+v", ev.Template)
	}
	if !strings.Contains(ev.Template.Rendered, "Hi Ann") {
		t.Fatalf("event rendered = %q", ev.Template.Rendered)
	}
	if url != "https://hooks.example.com/default" {
		t.Fatalf("webhook url = %s", url)
	}
}

func TestDispatch_LegacyMode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rcpt, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:      []string{"ann@example.com"},
		Subject: "Hola {{name}}",
		HTML:    "<p>Hola {{name}}</p>",
		Data:    map[string]any{"name": "Ann"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rcpt.Mode != ModeLegacy {
		t.Fatalf("mode = %s", rcpt.Mode)
	}
	if msg := f.sender.last(); msg.Subject != "Hola Ann" {
		t.Fatalf("subject = %q", msg.Subject)
	}
}

func TestDispatch_TransientRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	transient := errors.New("421 service not available")
	f := newFixture(t, transient, transient, nil)

	start := time.Now()
	rcpt, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "welcome",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := f.sender.count(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
	// backoff 10ms + 20ms como mínimo entre intentos
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("retries too fast: %v", elapsed)
	}

	entry, _ := f.logs.Get(context.Background(), rcpt.LogID)
	if entry.Status != repository.StatusSent {
		t.Fatalf("status = %s, want sent", entry.Status)
	}
}

func TestDispatch_PermanentFailsImmediately(t *testing.T) {
	t.Parallel()
	f := newFixture(t, errors.New("535 5.7.8 authentication failed"))

	_, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "welcome",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := f.sender.count(); got != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on permanent)", got)
	}

	ev, _ := f.waitEvent(t)
	if ev.Event != "dispatch.failed" || ev.Error == "" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDispatch_TransientExhaustsAttempts(t *testing.T) {
	t.Parallel()
	transient := errors.New("451 local error in processing")
	f := newFixture(t, transient, transient, transient)

	_, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "welcome",
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if got := f.sender.count(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}

	ev, _ := f.waitEvent(t)
	if ev.Event != "dispatch.failed" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDispatch_FailedLogKeepsErrorText(t *testing.T) {
	t.Parallel()
	f := newFixture(t, errors.New("550 5.1.1 user unknown"))

	_, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "welcome",
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	ev, _ := f.waitEvent(t)
	entry, getErr := f.logs.Get(context.Background(), ev.LogID)
	if getErr != nil {
		t.Fatalf("log get: %v", getErr)
	}
	if entry.Status != repository.StatusFailed {
		t.Fatalf("status = %s, want failed", entry.Status)
	}
	if !strings.Contains(entry.Error, "5.1.1") {
		t.Fatalf("log error = %q", entry.Error)
	}
}

func TestDispatch_RenderFailureFallsBackToRawContent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Template existente cuyo body no compila: bloque sin cerrar.
	if err := f.templates.InsertVersion(context.Background(), &repository.TemplateRecord{
		TenantID: "tenant-1",
		Slug:     "broken",
		Engine:   repository.EnginePlain,
		Subject:  "Hi {{name}}",
		Body:     "<p>{{#if name}}</p>",
		Active:   true,
	}); err != nil {
		t.Fatalf("seed broken template: %v", err)
	}

	rcpt, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "broken",
		Subject:      "Fallback {{name}}",
		HTML:         "<p>Fallback {{name}}</p>",
		Data:         map[string]any{"name": "Ann"},
	})
	if err != nil {
		t.Fatalf("dispatch with fallback: %v", err)
	}
	if len(rcpt.Warnings) == 0 {
		t.Fatalf("expected a warning about the fallback")
	}
	if msg := f.sender.last(); msg.Subject != "Fallback Ann" {
		t.Fatalf("subject = %q", msg.Subject)
	}

	// El contenido no salió del template: el evento no lo referencia.
	ev, _ := f.waitEvent(t)
	if ev.Template != nil {
		t.Fatalf("degraded send reported a template: %+v", ev.Template)
	}
}

func TestDispatch_UnknownTemplateWithRawContentFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Un slug inexistente es un error de lookup, no de render: sube intacto
	// aunque el request traiga contenido crudo.
	_, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "no-such-template",
		Subject:      "Raw subject",
		HTML:         "<p>raw</p>",
	})
	if !repository.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if got := f.sender.count(); got != 0 {
		t.Fatalf("transport touched on lookup failure: %d attempts", got)
	}
}

func TestDispatch_TemplateMissingNoFallbackFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:           []string{"ann@example.com"},
		TemplateSlug: "missing-template",
	})
	if !repository.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if got := f.sender.count(); got != 0 {
		t.Fatalf("transport touched on lookup failure: %d attempts", got)
	}
}

func TestDispatch_TenantWebhookOverridesDefault(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.pipeline.Dispatch(context.Background(), "hooked", &Request{
		To:      []string{"ann@example.com"},
		Subject: "s",
		HTML:    "<p>x</p>",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	_, url := f.waitEvent(t)
	if url != "https://hooks.example.com/own" {
		t.Fatalf("webhook url = %s, want tenant override", url)
	}
}

func TestDispatch_TemplateByID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec, err := f.templates.GetBySlug(context.Background(), "tenant-1", "welcome", nil)
	if err != nil {
		t.Fatalf("seeded template lookup: %v", err)
	}

	rcpt, err := f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:         []string{"ann@example.com"},
		TemplateID: rec.ID,
		Data:       map[string]any{"name": "Ann"},
	})
	if err != nil {
		t.Fatalf("dispatch by id: %v", err)
	}
	if rcpt.Mode != ModeTemplate {
		t.Fatalf("mode = %s", rcpt.Mode)
	}
	if msg := f.sender.last(); msg.Subject != "Hi Ann" {
		t.Fatalf("subject = %q", msg.Subject)
	}

	// ID desconocido es un error de lookup: sube intacto y no se envía nada.
	_, err = f.pipeline.Dispatch(context.Background(), "acme", &Request{
		To:         []string{"ann@example.com"},
		TemplateID: "00000000-0000-0000-0000-000000000000",
	})
	if !repository.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		req  Request
	}{
		{"no recipients", Request{Subject: "s", HTML: "h"}},
		{"bad address", Request{To: []string{"not-an-email"}, Subject: "s", HTML: "h"}},
		{"legacy without body", Request{To: []string{"a@b.com"}, Subject: "s"}},
		{"zero pinned version", Request{To: []string{"a@b.com"}, TemplateSlug: "w", TemplateVersion: intptr(0)}},
	}
	for _, tc := range cases {
		if err := (&tc.req).Validate(); !repository.IsInvalidInput(err) {
			t.Fatalf("%s: err = %v, want invalid input", tc.name, err)
		}
	}

	ok := Request{To: []string{"a@b.com"}, TemplateSlug: "welcome"}
	if err := (&ok).Validate(); err != nil {
		t.Fatalf("valid template request rejected: %v", err)
	}
}

func intptr(v int) *int { return &v }
