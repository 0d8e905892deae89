// Package render compila templates de email (subject, body, texto plano)
// con una gramática de sustitución con lógica (variables, acceso anidado,
// iteración, condicionales), compilación estructural del vocabulario de
// layout, inlining de CSS, sanitización y derivación de texto plano.
//
// Las salidas se direccionan por contenido en el render cache: un hit evita
// recompilar por completo (observable vía Compiles()).
package render

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/aymerick/raymond"
	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/metrics"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/dropDatabas3/mailroom/internal/rendercache"
)

// Result es la salida de un render completo.
type Result struct {
	Subject string
	HTML    string
	Text    string

	// CacheHit indica que la salida vino del cache sin recompilar.
	CacheHit bool

	// Warnings acumula fallas no fatales (inliner, sanitizer, texto custom).
	Warnings []string
}

// Config configura el Engine.
type Config struct {
	Cache     rendercache.Cache // requerido
	CacheTTL  time.Duration     // 0 => rendercache.DefaultTTL
	TextWidth int               // 0 => DefaultTextWidth
}

// Engine renderiza TemplateRecords. Seguro para uso concurrente: el único
// estado mutable es el contador de compilaciones y el cache inyectado.
type Engine struct {
	cache     rendercache.Cache
	cacheTTL  time.Duration
	textWidth int
	compiles  atomic.Int64
}

// New crea un Engine.
func New(cfg Config) *Engine {
	if cfg.Cache == nil {
		cfg.Cache = rendercache.NewMemory(rendercache.DefaultTTL)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = rendercache.DefaultTTL
	}
	if cfg.TextWidth == 0 {
		cfg.TextWidth = DefaultTextWidth
	}
	return &Engine{
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		textWidth: cfg.TextWidth,
	}
}

// Compiles retorna cuántas veces el engine compiló de verdad (misses).
// Los tests de caching se apoyan en este contador.
func (e *Engine) Compiles() int64 {
	return e.compiles.Load()
}

// Render produce {subject, html, text} para el record con los datos dados.
//
// Pipeline: fingerprint -> cache -> subject -> body -> markup -> inline ->
// sanitize -> texto plano -> cache store. Cualquier error de sintaxis corta
// con *Error(KindCompile) sin emitir salida parcial.
func (e *Engine) Render(ctx context.Context, rec *repository.TemplateRecord, data map[string]any) (*Result, error) {
	log := logger.From(ctx).With(
		logger.Component("render"),
		logger.TemplateSlug(rec.Slug),
		logger.TemplateVersion(rec.Version),
	)

	fp := Fingerprint(data)
	key := rendercache.Key(rec.ID, rec.Version, fp)

	if entry, ok := e.cache.Get(ctx, key); ok {
		log.Debug("render cache hit", logger.CacheKey(key))
		return &Result{
			Subject:  entry.Subject,
			HTML:     entry.HTML,
			Text:     entry.Text,
			CacheHit: true,
		}, nil
	}

	e.compiles.Add(1)
	metrics.TemplateCompiles.Inc()

	res := &Result{}

	subject, err := expand("subject", rec.Subject, data)
	if err != nil {
		return nil, err
	}
	res.Subject = subject

	body, err := expand("body", rec.Body, data)
	if err != nil {
		return nil, err
	}

	htmlDoc := body
	if rec.Engine == repository.EngineMarkup {
		htmlDoc, err = CompileMarkup(body)
		if err != nil {
			return nil, compileErr("markup", err)
		}
	}

	// Inlining: no fatal. Un inliner roto no voltea la entrega de HTML válido.
	if inlined, err := inlineCSS(htmlDoc); err != nil {
		res.Warnings = append(res.Warnings, "css inline failed: "+err.Error())
		log.Warn("css inline failed, keeping original html", logger.Err(err))
	} else {
		htmlDoc = inlined
	}

	sanitized, warn := Sanitize(htmlDoc)
	if warn != "" {
		res.Warnings = append(res.Warnings, warn)
		log.Warn("sanitize degraded", logger.String("warning", warn))
	}
	res.HTML = sanitized

	res.Text = e.renderText(rec, data, res)

	e.cache.Set(ctx, key, &rendercache.Entry{
		Subject: res.Subject,
		HTML:    res.HTML,
		Text:    res.Text,
	}, e.cacheTTL)

	return res, nil
}

// renderText produce el texto plano: template custom si existe (misma
// gramática, mismos datos — no re-derivado del HTML); si el custom falla,
// cae a la derivación automática desde el HTML ya sanitizado.
func (e *Engine) renderText(rec *repository.TemplateRecord, data map[string]any, res *Result) string {
	if rec.TextBody != "" {
		txt, err := expand("text", rec.TextBody, data)
		if err == nil {
			return txt
		}
		res.Warnings = append(res.Warnings, "custom text template failed, derived from html: "+err.Error())
	}
	return DeriveText(res.HTML, e.textWidth)
}

// expand corre la gramática de sustitución (handlebars) sobre src.
// Sintaxis inválida => *Error(KindCompile); no se emite texto parcial.
func expand(stage, src string, data map[string]any) (string, error) {
	if src == "" {
		return "", nil
	}
	tpl, err := raymond.Parse(src)
	if err != nil {
		return "", compileErr(stage, err)
	}
	out, err := tpl.Exec(data)
	if err != nil {
		return "", compileErr(stage, err)
	}
	return out, nil
}
