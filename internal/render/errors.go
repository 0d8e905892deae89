package render

import (
	"errors"
	"fmt"
)

// Kind clasifica una falla del engine de render.
type Kind string

const (
	// KindCompile indica sintaxis inválida en el template o en el vocabulario
	// de markup. No se emite texto parcial: la salida se descarta entera.
	KindCompile Kind = "compile"

	// KindInternal indica una falla del propio engine (no del template).
	KindInternal Kind = "internal"
)

// Error es el error tipado del engine de render.
type Error struct {
	Kind  Kind
	Stage string // subject | body | markup | text
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render: %s (%s): %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func compileErr(stage string, err error) *Error {
	return &Error{Kind: KindCompile, Stage: stage, Err: err}
}

// IsCompileError verifica si err es un error de compilación de template.
func IsCompileError(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindCompile
}
