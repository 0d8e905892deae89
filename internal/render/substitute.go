package render

import (
	"fmt"
	"regexp"
	"strings"
)

// Sustitución directa para el modo legacy: solo variables {{var}} (con
// acceso anidado por puntos), sin bloques de lógica ni caching. Variables
// desconocidas se reemplazan por vacío.

var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// Substitute expande {{var}} y {{a.b.c}} contra data.
func Substitute(src string, data map[string]any) string {
	return varPattern.ReplaceAllStringFunc(src, func(m string) string {
		name := strings.TrimSpace(strings.Trim(m, "{}"))
		v, ok := lookupPath(data, name)
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	})
}

// lookupPath navega un path con puntos a través de maps anidados.
func lookupPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
