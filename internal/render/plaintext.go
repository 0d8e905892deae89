package render

import (
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
)

// DefaultTextWidth es el ancho de columna del texto plano derivado.
const DefaultTextWidth = 76

var tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

// DeriveText deriva la versión texto plano de un HTML: conserva el texto de
// los anchors (descarta el destino del link), omite imágenes por completo y
// envuelve a un ancho fijo de columna.
func DeriveText(htmlDoc string, width int) string {
	if width <= 0 {
		width = DefaultTextWidth
	}

	txt, err := html2text.FromString(htmlDoc, html2text.Options{
		OmitLinks: true, // solo anchor text
		TextOnly:  false,
	})
	if err != nil {
		// Derivación degradada: strip crudo de tags. Peor tipografía,
		// pero el texto del destinatario nunca queda vacío por un HTML raro.
		txt = tagPattern.ReplaceAllString(htmlDoc, " ")
	}
	return wrapText(strings.TrimSpace(txt), width)
}

// wrapText envuelve cada línea al ancho dado, sin cortar palabras.
func wrapText(s string, width int) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if len(line) <= width {
			out = append(out, line)
			continue
		}
		var cur strings.Builder
		for _, word := range strings.Fields(line) {
			if cur.Len() > 0 && cur.Len()+1+len(word) > width {
				out = append(out, cur.String())
				cur.Reset()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
		}
	}
	return strings.Join(out, "\n")
}
