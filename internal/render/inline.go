package render

import (
	"github.com/vanng822/go-premailer/premailer"
)

// inlineCSS aplica las reglas de <style> como estilos inline sobre los
// elementos que matchean. Los clientes de email ignoran hojas de estilo con
// frecuencia, por eso todo lo inlineable va al atributo style; las media
// queries no pueden inline-arse y permanecen en el bloque <style>.
func inlineCSS(htmlDoc string) (string, error) {
	opts := premailer.NewOptions()
	opts.KeepBangImportant = true
	opts.RemoveClasses = false // las media queries referencian clases

	prem, err := premailer.NewPremailerFromString(htmlDoc, opts)
	if err != nil {
		return "", err
	}
	return prem.Transform()
}
