package render

import (
	"fmt"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizeOnce   sync.Once
	sanitizePolicy *bluemonday.Policy
)

// emailPolicy permite el markup estructural y de presentación que emite el
// compilador (tablas, estilos inline, imágenes, links) y elimina todo lo
// capaz de ejecutar script: <script>, handlers on*, URLs javascript:.
func emailPolicy() *bluemonday.Policy {
	sanitizeOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("html", "head", "body", "meta", "style", "title", "center", "font")
		p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "td", "th")
		p.AllowAttrs("style", "class", "id", "align", "valign", "width", "height",
			"bgcolor", "border", "cellpadding", "cellspacing", "role", "lang", "dir").Globally()
		p.AllowAttrs("type", "charset", "name", "content", "http-equiv").OnElements("meta", "style")
		p.AllowAttrs("target").OnElements("a")
		p.AllowDataURIImages()
		p.AllowComments() // comentarios condicionales de Outlook
		sanitizePolicy = p
	})
	return sanitizePolicy
}

// Sanitize elimina del HTML todo elemento/atributo capaz de disparar
// ejecución de script, preservando el markup estructural y de presentación.
//
// Este paso es defensivo y nunca falla: ante un panic interno del sanitizer
// devuelve el HTML original sin tocar más un warning para el caller.
func Sanitize(htmlDoc string) (out string, warning string) {
	defer func() {
		if r := recover(); r != nil {
			out = htmlDoc
			warning = fmt.Sprintf("sanitizer panicked, html passed through unchanged: %v", r)
		}
	}()
	return emailPolicy().Sanitize(htmlDoc), ""
}
