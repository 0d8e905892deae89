// Package dispatch implementa el pipeline de despacho: construcción del
// contenido (template o legacy), log durable sending→sent|failed, transporte
// SMTP con reintentos exponenciales para errores transitorios y notificación
// fire-and-forget del resultado.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/mailer"
	"github.com/dropDatabas3/mailroom/internal/metrics"
	"github.com/dropDatabas3/mailroom/internal/notify"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/dropDatabas3/mailroom/internal/render"
	"github.com/dropDatabas3/mailroom/internal/resolver"
	"go.uber.org/zap"
)

// Parámetros de reintento: delay base 500ms duplicado por intento
// (500ms, 1s, 2s, ...), 3 intentos en total. Solo errores transitorios.
const (
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxAttempts = 3
)

// Receipt es el resultado de un despacho aceptado por el transporte.
type Receipt struct {
	MessageID string
	LogID     string
	Mode      Mode
	CacheHit  bool
	Warnings  []string
}

// Config configura el Pipeline.
type Config struct {
	Resolver *resolver.Resolver               // requerido
	Engine   *render.Engine                   // requerido
	Senders  mailer.SenderProvider            // requerido
	Logs     repository.DispatchLogRepository // requerido
	Notifier notify.Notifier                  // nil => notify.Noop

	// DefaultWebhookURL recibe eventos de tenants sin webhook propio.
	DefaultWebhookURL string

	BaseDelay   time.Duration // 0 => DefaultBaseDelay
	MaxAttempts int           // 0 => DefaultMaxAttempts
}

// Pipeline despacha emails. Seguro para uso concurrente; cada Dispatch es
// independiente y duerme sus backoffs en su propia goroutine.
type Pipeline struct {
	resolver    *resolver.Resolver
	engine      *render.Engine
	senders     mailer.SenderProvider
	logs        repository.DispatchLogRepository
	notifier    notify.Notifier
	defaultHook string
	baseDelay   time.Duration
	maxAttempts int
}

// New crea un Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Noop{}
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Pipeline{
		resolver:    cfg.Resolver,
		engine:      cfg.Engine,
		senders:     cfg.Senders,
		logs:        cfg.Logs,
		notifier:    cfg.Notifier,
		defaultHook: cfg.DefaultWebhookURL,
		baseDelay:   cfg.BaseDelay,
		maxAttempts: cfg.MaxAttempts,
	}
}

// content es el material ya renderizado listo para transporte.
type content struct {
	subject    string
	html       string
	text       string
	tplSlug    string // seteado solo si el template efectivamente renderizó
	tplVersion int
	cacheHit   bool
	warnings   []string
}

// Dispatch ejecuta el pipeline completo para un request.
//
// La entrada del log se crea con status sending ANTES de tocar el
// transporte y termina en exactamente un estado terminal. Las fallas de
// render/validación cortan antes del log: no hubo intento de envío que
// registrar.
func (p *Pipeline) Dispatch(ctx context.Context, tenantSlugOrID string, req *Request) (*Receipt, error) {
	start := time.Now()
	log := logger.From(ctx).With(
		logger.Component("dispatch"),
		logger.TenantSlug(tenantSlugOrID),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenant, err := p.resolver.ResolveTenant(ctx, tenantSlugOrID)
	if err != nil {
		return nil, err
	}

	cnt, err := p.buildContent(ctx, tenant, req, log)
	if err != nil {
		return nil, err
	}

	sender, err := p.senders.GetSender(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("sender for tenant %s: %w", tenant.Slug, err)
	}

	entry := &repository.DispatchLogEntry{
		TenantID:   tenant.ID,
		Recipients: req.To,
		Subject:    cnt.subject,
	}
	if err := p.logs.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("dispatch log insert: %w", err)
	}
	log = log.With(logger.LogID(entry.ID))

	msg := &mailer.Message{
		To:      req.To,
		Cc:      req.Cc,
		Bcc:     req.Bcc,
		ReplyTo: req.ReplyTo,
		Subject: cnt.subject,
		HTML:    cnt.html,
		Text:    cnt.text,
		Headers: req.Headers,
	}

	messageID, sendErr := p.sendWithRetry(ctx, sender, msg, log)

	ev := notify.Event{
		Tenant:     tenant.Slug,
		LogID:      entry.ID,
		Recipients: req.To,
		Subject:    cnt.subject,
		Timestamp:  time.Now().UTC(),
	}
	if cnt.tplSlug != "" {
		ev.Template = &notify.TemplateRef{
			Slug:     cnt.tplSlug,
			Version:  cnt.tplVersion,
			Rendered: cnt.html,
		}
	}
	hookURL := p.defaultHook
	if tenant.Settings.Webhook != nil && tenant.Settings.Webhook.URL != "" {
		hookURL = tenant.Settings.Webhook.URL
	}

	if sendErr != nil {
		// Best-effort: una falla del log no cambia el resultado del envío.
		if err := p.logs.MarkFailed(ctx, entry.ID, sendErr.Error()); err != nil {
			log.Warn("mark failed did not persist", logger.Err(err))
		}
		metrics.DispatchTotal.WithLabelValues("failed").Inc()
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())

		ev.Event = "dispatch.failed"
		ev.Error = sendErr.Error()
		p.notifier.Notify(ctx, hookURL, ev)

		log.Error("dispatch failed", logger.Err(sendErr), logger.Duration(time.Since(start)))
		return nil, sendErr
	}

	if err := p.logs.MarkSent(ctx, entry.ID, time.Now().UTC()); err != nil {
		log.Warn("mark sent did not persist", logger.Err(err))
	}
	metrics.DispatchTotal.WithLabelValues("sent").Inc()
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	ev.Event = "dispatch.sent"
	ev.MessageID = messageID
	p.notifier.Notify(ctx, hookURL, ev)

	log.Info("dispatch sent",
		logger.MessageID(messageID),
		logger.Duration(time.Since(start)),
	)
	return &Receipt{
		MessageID: messageID,
		LogID:     entry.ID,
		Mode:      req.Mode(),
		CacheHit:  cnt.cacheHit,
		Warnings:  cnt.warnings,
	}, nil
}

// buildContent arma {subject, html, text} según el modo del request. En
// modo template, solo una falla de RENDER con contenido crudo presente
// degrada a legacy; los errores de lookup (slug/versión/ID inexistente)
// suben intactos: un slug mal tipeado no debe despachar el contenido
// crudo en silencio.
func (p *Pipeline) buildContent(ctx context.Context, tenant *repository.Tenant, req *Request, log *zap.Logger) (*content, error) {
	if req.Mode() == ModeLegacy {
		return legacyContent(req), nil
	}

	var rec *repository.TemplateRecord
	var err error
	if req.TemplateID != "" {
		rec, err = p.resolver.ResolveTemplateByID(ctx, tenant.ID, req.TemplateID)
	} else {
		rec, err = p.resolver.ResolveTemplate(ctx, tenant.ID, req.TemplateSlug, req.TemplateVersion)
	}
	if err != nil {
		return nil, err
	}

	res, err := p.engine.Render(ctx, rec, req.Data)
	if err == nil {
		return &content{
			subject:    res.Subject,
			html:       res.HTML,
			text:       res.Text,
			tplSlug:    rec.Slug,
			tplVersion: rec.Version,
			cacheHit:   res.CacheHit,
			warnings:   res.Warnings,
		}, nil
	}

	if req.HasRawContent() {
		log.Warn("template render failed, falling back to raw content",
			logger.TemplateSlug(rec.Slug),
			logger.TemplateVersion(rec.Version),
			logger.Err(err),
		)
		cnt := legacyContent(req)
		cnt.warnings = append(cnt.warnings, "template render failed, raw content used: "+err.Error())
		return cnt, nil
	}
	return nil, err
}

func legacyContent(req *Request) *content {
	return &content{
		subject: render.Substitute(req.Subject, req.Data),
		html:    render.Substitute(req.HTML, req.Data),
		text:    render.Substitute(req.Text, req.Data),
	}
}

// sendWithRetry ejecuta el transporte con backoff exponencial sin jitter.
// Solo reintenta errores transitorios; el resto corta en el acto.
func (p *Pipeline) sendWithRetry(ctx context.Context, sender mailer.Sender, msg *mailer.Message, log *zap.Logger) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // el tope es por cantidad de intentos

	var messageID string
	attempt := 0

	operation := func() error {
		attempt++
		id, err := sender.Send(ctx, msg)
		if err != nil {
			if !mailer.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		messageID = id
		return nil
	}
	onRetry := func(err error, next time.Duration) {
		metrics.DispatchRetries.Inc()
		log.Warn("transient send failure, retrying",
			logger.Attempt(attempt),
			logger.Duration(next),
			logger.Err(err),
		)
	}

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.maxAttempts-1)), ctx),
		onRetry,
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return "", err
	}
	return messageID, nil
}
