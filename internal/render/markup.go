package render

import (
	"encoding/xml"
	"fmt"
	"html"
	"strings"
)

// Compilación estructural del vocabulario de layout responsivo a un
// documento HTML standalone apto para clientes de email: layout por tablas,
// estilos inline-safe por defecto, comentario condicional para Outlook y un
// bloque de media queries para el stacking mobile (las media queries no se
// pueden inline-ar, quedan en <style>).
//
// Vocabulario:
//
//	<mail width="600" background="#f4f4f4">
//	  <section background="#ffffff" padding="24px">
//	    <column width="50%"> ...bloques... </column>
//	  </section>
//	</mail>
//
// Bloques: <text>, <heading level="1|2|3">, <button href="...">,
// <image src="..."/>, <divider/>, <spacer height="24"/>.
// Una <section> sin <column> envuelve sus bloques en una columna implícita.
//
// El vocabulario es XML estricto: elementos desconocidos o markup mal
// formado fallan la compilación (nunca se emite un documento parcial).

const defaultFontStack = "-apple-system,'Segoe UI',Roboto,Helvetica,Arial,sans-serif"

type markupNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr   `xml:",any,attr"`
	Kids    []markupNode `xml:",any"`
	Inner   string       `xml:",innerxml"`
}

func (n *markupNode) attr(name, fallback string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return fallback
}

var markupBlocks = map[string]bool{
	"text":    true,
	"heading": true,
	"button":  true,
	"image":   true,
	"divider": true,
	"spacer":  true,
}

// CompileMarkup traduce el vocabulario de layout (ya expandido por la
// gramática de sustitución) a un documento HTML completo.
func CompileMarkup(src string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(src))
	dec.Entity = xml.HTMLEntity

	var root markupNode
	if err := dec.Decode(&root); err != nil {
		return "", fmt.Errorf("markup mal formado: %w", err)
	}
	if root.XMLName.Local != "mail" {
		return "", fmt.Errorf("el elemento raíz debe ser <mail>, obtuvo <%s>", root.XMLName.Local)
	}

	width := root.attr("width", "600")
	background := root.attr("background", "#f4f4f4")

	var b strings.Builder
	writeDocumentHead(&b, width)

	fmt.Fprintf(&b, `<body style="margin:0;padding:0;background-color:%s;">`, html.EscapeString(background))
	b.WriteString("\n")
	fmt.Fprintf(&b, `<table role="presentation" width="100%%" cellpadding="0" cellspacing="0" border="0" style="background-color:%s;"><tr><td align="center">`, html.EscapeString(background))
	b.WriteString("\n")
	// Outlook no respeta max-width: contenedor fijo vía comentario condicional.
	fmt.Fprintf(&b, "<!--[if mso]><table role=\"presentation\" width=\"%s\" cellpadding=\"0\" cellspacing=\"0\" border=\"0\"><tr><td><![endif]-->\n", width)
	fmt.Fprintf(&b, `<table role="presentation" class="email-container" width="100%%" cellpadding="0" cellspacing="0" border="0" style="max-width:%spx;margin:0 auto;">`, width)
	b.WriteString("\n")

	for _, kid := range root.Kids {
		if kid.XMLName.Local != "section" {
			return "", fmt.Errorf("elemento <%s> no permitido dentro de <mail> (solo <section>)", kid.XMLName.Local)
		}
		if err := compileSection(&b, &kid); err != nil {
			return "", err
		}
	}

	b.WriteString("</table>\n<!--[if mso]></td></tr></table><![endif]-->\n</td></tr></table>\n</body>\n</html>\n")
	return b.String(), nil
}

func writeDocumentHead(b *strings.Builder, width string) {
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html lang="und" xmlns:v="urn:schemas-microsoft-com:vml">` + "\n")
	b.WriteString("<head>\n")
	b.WriteString(`<meta charset="utf-8">` + "\n")
	b.WriteString(`<meta name="viewport" content="width=device-width,initial-scale=1">` + "\n")
	b.WriteString(`<meta http-equiv="X-UA-Compatible" content="IE=edge">` + "\n")
	// Bloque reservado a media queries: el paso de inlining lo deja intacto.
	fmt.Fprintf(b, `<style type="text/css">
@media screen and (max-width:%spx) {
  .email-container { width: 100%% !important; }
  .stack-column { display: block !important; width: 100%% !important; max-width: 100%% !important; }
}
</style>
`, width)
	b.WriteString("</head>\n")
}

func compileSection(b *strings.Builder, sec *markupNode) error {
	background := sec.attr("background", "#ffffff")
	padding := sec.attr("padding", "24px")

	fmt.Fprintf(b, `<tr><td style="background-color:%s;padding:%s;">`, html.EscapeString(background), html.EscapeString(padding))
	b.WriteString("\n")

	cols, err := sectionColumns(sec)
	if err != nil {
		return err
	}

	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0"><tr>` + "\n")
	share := fmt.Sprintf("%d%%", 100/len(cols))
	for _, col := range cols {
		width := col.attr("width", share)
		fmt.Fprintf(b, `<td class="stack-column" width="%s" valign="top" style="vertical-align:top;">`, html.EscapeString(width))
		b.WriteString("\n")
		for _, blk := range col.Kids {
			if err := compileBlock(b, &blk); err != nil {
				return err
			}
		}
		b.WriteString("</td>\n")
	}
	b.WriteString("</tr></table>\n</td></tr>\n")
	return nil
}

// sectionColumns retorna las columnas de una sección. Bloques directos se
// envuelven en una columna implícita; mezclar ambos es un error.
func sectionColumns(sec *markupNode) ([]markupNode, error) {
	var cols []markupNode
	var direct []markupNode
	for _, kid := range sec.Kids {
		switch {
		case kid.XMLName.Local == "column":
			cols = append(cols, kid)
		case markupBlocks[kid.XMLName.Local]:
			direct = append(direct, kid)
		default:
			return nil, fmt.Errorf("elemento <%s> no permitido dentro de <section>", kid.XMLName.Local)
		}
	}
	if len(cols) > 0 && len(direct) > 0 {
		return nil, fmt.Errorf("<section> no puede mezclar <column> con bloques directos")
	}
	if len(cols) == 0 {
		cols = []markupNode{{Kids: direct}}
	}
	return cols, nil
}

func compileBlock(b *strings.Builder, blk *markupNode) error {
	switch blk.XMLName.Local {
	case "text":
		size := blk.attr("font-size", "14px")
		color := blk.attr("color", "#333333")
		align := blk.attr("align", "left")
		fmt.Fprintf(b, `<div style="font-family:%s;font-size:%s;line-height:1.5;color:%s;text-align:%s;">%s</div>`+"\n",
			defaultFontStack, html.EscapeString(size), html.EscapeString(color), html.EscapeString(align), strings.TrimSpace(blk.Inner))

	case "heading":
		level := blk.attr("level", "1")
		size := map[string]string{"1": "28px", "2": "22px", "3": "18px"}[level]
		if size == "" {
			return fmt.Errorf("<heading level=%q> inválido (1..3)", level)
		}
		color := blk.attr("color", "#111111")
		fmt.Fprintf(b, `<h%s style="font-family:%s;font-size:%s;line-height:1.3;color:%s;margin:0 0 12px 0;">%s</h%s>`+"\n",
			level, defaultFontStack, size, html.EscapeString(color), strings.TrimSpace(blk.Inner), level)

	case "button":
		href := blk.attr("href", "")
		if href == "" {
			return fmt.Errorf("<button> requiere atributo href")
		}
		background := blk.attr("background", "#1a73e8")
		color := blk.attr("color", "#ffffff")
		align := blk.attr("align", "center")
		fmt.Fprintf(b, `<table role="presentation" cellpadding="0" cellspacing="0" border="0" align="%s" style="margin:12px auto;"><tr><td style="border-radius:4px;background-color:%s;">`,
			html.EscapeString(align), html.EscapeString(background))
		fmt.Fprintf(b, `<a href="%s" target="_blank" style="display:inline-block;padding:12px 24px;font-family:%s;font-size:14px;font-weight:bold;color:%s;text-decoration:none;border-radius:4px;">%s</a>`,
			html.EscapeString(href), defaultFontStack, html.EscapeString(color), strings.TrimSpace(blk.Inner))
		b.WriteString("</td></tr></table>\n")

	case "image":
		src := blk.attr("src", "")
		if src == "" {
			return fmt.Errorf("<image> requiere atributo src")
		}
		width := blk.attr("width", "100%")
		alt := blk.attr("alt", "")
		fmt.Fprintf(b, `<img src="%s" alt="%s" style="display:block;width:%s;max-width:100%%;height:auto;border:0;">`+"\n",
			html.EscapeString(src), html.EscapeString(alt), html.EscapeString(width))

	case "divider":
		color := blk.attr("color", "#e0e0e0")
		fmt.Fprintf(b, `<table role="presentation" width="100%%" cellpadding="0" cellspacing="0" border="0"><tr><td style="border-top:1px solid %s;font-size:0;line-height:0;">&#160;</td></tr></table>`+"\n",
			html.EscapeString(color))

	case "spacer":
		height := blk.attr("height", "16")
		fmt.Fprintf(b, `<div style="height:%spx;line-height:%spx;font-size:0;">&#160;</div>`+"\n",
			html.EscapeString(height), html.EscapeString(height))

	default:
		return fmt.Errorf("bloque <%s> desconocido", blk.XMLName.Local)
	}
	return nil
}
