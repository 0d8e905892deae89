package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/rendercache"
)

func testRecord(engine repository.Engine) *repository.TemplateRecord {
	return &repository.TemplateRecord{
		ID:       "tpl-test-1",
		TenantID: "tenant-1",
		Slug:     "welcome",
		Engine:   engine,
		Subject:  "Hi {{name}}",
		Body:     "<h1>Hi {{name}}</h1>",
		Version:  1,
		Active:   true,
	}
}

func newTestEngine() *Engine {
	return New(Config{Cache: rendercache.NewMemory(time.Minute)})
}

func TestRender_PlainExample(t *testing.T) {
	t.Parallel()
	e := newTestEngine()

	res, err := e.Render(context.Background(), testRecord(repository.EnginePlain), map[string]any{"name": "Ann"})
	if err != nil {
		t.Fatalf("Render err: %v", err)
	}
	if res.Subject != "Hi Ann" {
		t.Fatalf("subject = %q, want %q", res.Subject, "Hi Ann")
	}
	if !strings.Contains(res.HTML, "Hi Ann") {
		t.Fatalf("html missing greeting: %q", res.HTML)
	}
	if !strings.Contains(res.Text, "Hi Ann") {
		t.Fatalf("text missing greeting: %q", res.Text)
	}
	if strings.ContainsAny(res.Text, "<>") {
		t.Fatalf("text contains markup: %q", res.Text)
	}
}

func TestRender_CacheHitSkipsCompile(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	ctx := context.Background()
	rec := testRecord(repository.EnginePlain)
	data := map[string]any{"name": "Ann"}

	first, err := e.Render(ctx, rec, data)
	if err != nil {
		t.Fatalf("first render err: %v", err)
	}
	if first.CacheHit {
		t.Fatalf("first render reported cache hit")
	}
	if got := e.Compiles(); got != 1 {
		t.Fatalf("compiles after first render = %d, want 1", got)
	}

	second, err := e.Render(ctx, rec, data)
	if err != nil {
		t.Fatalf("second render err: %v", err)
	}
	if !second.CacheHit {
		t.Fatalf("second render was not a cache hit")
	}
	// El hit no debe disparar el paso de compilación.
	if got := e.Compiles(); got != 1 {
		t.Fatalf("compiles after second render = %d, want 1", got)
	}
	if second.Subject != first.Subject || second.HTML != first.HTML || second.Text != first.Text {
		t.Fatalf("cached output differs from original")
	}
}

func TestRender_DataOrderDoesNotBypassCache(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	ctx := context.Background()
	rec := testRecord(repository.EnginePlain)
	rec.Subject = "{{a}} {{b}}"
	rec.Body = "<p>{{a}} {{b}}</p>"

	if _, err := e.Render(ctx, rec, map[string]any{"a": "x", "b": "y"}); err != nil {
		t.Fatal(err)
	}
	// Mismo contenido lógico, armado en otro orden.
	res, err := e.Render(ctx, rec, map[string]any{"b": "y", "a": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheHit {
		t.Fatalf("logically identical data missed the cache")
	}
}

func TestRender_MalformedSubjectFailsCompile(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	rec := testRecord(repository.EnginePlain)
	rec.Subject = "Hi {{#each items}}{{this}}" // bloque sin cerrar

	_, err := e.Render(context.Background(), rec, map[string]any{})
	if err == nil {
		t.Fatalf("expected compile error")
	}
	if !IsCompileError(err) {
		t.Fatalf("error is not a compile error: %v", err)
	}
}

func TestRender_LogicBlocks(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	rec := testRecord(repository.EnginePlain)
	rec.Subject = "Order {{order.id}}"
	rec.Body = "<ul>{{#each items}}<li>{{this}}</li>{{/each}}</ul>{{#if vip}}<p>Thanks!</p>{{/if}}"

	res, err := e.Render(context.Background(), rec, map[string]any{
		"order": map[string]any{"id": "A-7"},
		"items": []any{"one", "two"},
		"vip":   true,
	})
	if err != nil {
		t.Fatalf("Render err: %v", err)
	}
	if res.Subject != "Order A-7" {
		t.Fatalf("dotted lookup failed: %q", res.Subject)
	}
	for _, want := range []string{"one", "two", "Thanks!"} {
		if !strings.Contains(res.HTML, want) {
			t.Fatalf("html missing %q: %q", want, res.HTML)
		}
	}
}

func TestRender_SanitizeStripsScripts(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	rec := testRecord(repository.EnginePlain)
	rec.Body = `<p onclick="evil()">hi</p><script>alert(1)</script><a href="javascript:evil()">x</a>`

	res, err := e.Render(context.Background(), rec, map[string]any{"name": "Ann"})
	if err != nil {
		t.Fatalf("Render err: %v", err)
	}
	for _, bad := range []string{"<script", "onclick", "javascript:"} {
		if strings.Contains(res.HTML, bad) {
			t.Fatalf("sanitized html still contains %q: %q", bad, res.HTML)
		}
	}
	if !strings.Contains(res.HTML, "hi") {
		t.Fatalf("sanitizer dropped legit content: %q", res.HTML)
	}
}

func TestRender_CustomTextTemplate(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	rec := testRecord(repository.EnginePlain)
	rec.TextBody = "Plain hello {{name}}"

	res, err := e.Render(context.Background(), rec, map[string]any{"name": "Ann"})
	if err != nil {
		t.Fatalf("Render err: %v", err)
	}
	if res.Text != "Plain hello Ann" {
		t.Fatalf("custom text = %q", res.Text)
	}
}

func TestRender_CustomTextFallsBackOnFailure(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	rec := testRecord(repository.EnginePlain)
	rec.TextBody = "{{#if broken}}" // no compila

	res, err := e.Render(context.Background(), rec, map[string]any{"name": "Ann"})
	if err != nil {
		t.Fatalf("Render err: %v", err)
	}
	// Derivación automática desde el HTML.
	if !strings.Contains(res.Text, "Hi Ann") {
		t.Fatalf("fallback text = %q", res.Text)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected warning about custom text failure")
	}
}

func TestRender_MarkupEngine(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	rec := testRecord(repository.EngineMarkup)
	rec.Body = `<mail><section><text>Hola {{name}}</text><button href="https://example.com/go">Ir</button></section></mail>`

	res, err := e.Render(context.Background(), rec, map[string]any{"name": "Ann"})
	if err != nil {
		t.Fatalf("Render err: %v", err)
	}
	if !strings.Contains(res.HTML, "Hola Ann") {
		t.Fatalf("html missing expanded text: %q", res.HTML)
	}
	if !strings.Contains(res.HTML, "<table") {
		t.Fatalf("markup did not compile to table layout")
	}
	if !strings.Contains(res.HTML, "https://example.com/go") {
		t.Fatalf("button href lost")
	}
}

func TestRender_MarkupCompileError(t *testing.T) {
	t.Parallel()
	e := newTestEngine()
	rec := testRecord(repository.EngineMarkup)
	rec.Body = `<mail><section><blink>nope</blink></section></mail>`

	_, err := e.Render(context.Background(), rec, map[string]any{})
	if err == nil || !IsCompileError(err) {
		t.Fatalf("expected compile error, got %v", err)
	}
}
