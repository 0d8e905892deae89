package render

import (
	"strings"
	"testing"
)

func TestSubstitute_Basic(t *testing.T) {
	t.Parallel()

	out := Substitute("Hola {{name}}, pedido {{order.id}}", map[string]any{
		"name":  "Ann",
		"order": map[string]any{"id": "A-7"},
	})
	if out != "Hola Ann, pedido A-7" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstitute_UnknownVarIsEmpty(t *testing.T) {
	t.Parallel()

	out := Substitute("Hola {{nope}}!", map[string]any{})
	if out != "Hola !" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstitute_NoLogicBlocks(t *testing.T) {
	t.Parallel()

	// Los bloques de lógica NO se interpretan en modo legacy: quedan tal cual.
	src := "{{#if x}}a{{/if}}"
	out := Substitute(src, map[string]any{"x": true})
	if !strings.Contains(out, "#if") {
		t.Fatalf("legacy substitution interpreted a logic block: %q", out)
	}
}

func TestWrapText(t *testing.T) {
	t.Parallel()

	out := wrapText(strings.Repeat("palabra ", 20), 20)
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 20 {
			t.Fatalf("line longer than width: %q", line)
		}
	}
}

func TestDeriveText_LinksAndImages(t *testing.T) {
	t.Parallel()

	html := `<p>Ver <a href="https://example.com/x">el sitio</a></p><img src="https://example.com/pix.png" alt="pix">`
	txt := DeriveText(html, 76)
	if !strings.Contains(txt, "el sitio") {
		t.Fatalf("anchor text lost: %q", txt)
	}
	if strings.Contains(txt, "example.com/x") {
		t.Fatalf("link target leaked: %q", txt)
	}
	if strings.Contains(txt, "pix.png") {
		t.Fatalf("image leaked: %q", txt)
	}
}
