package repository

import (
	"context"
	"time"
)

// DispatchStatus es el estado de un intento de despacho.
type DispatchStatus string

const (
	StatusSending DispatchStatus = "sending"
	StatusSent    DispatchStatus = "sent"
	StatusFailed  DispatchStatus = "failed"
)

// DispatchLogEntry es el registro durable del ciclo de vida de un envío.
//
// Se crea con StatusSending ANTES de tocar el transporte, y transiciona a
// exactamente un estado terminal (sent | failed). El pipeline es dueño
// exclusivo de la fila durante el despacho; nunca se comparte entre
// despachos concurrentes.
type DispatchLogEntry struct {
	ID         string // UUID
	TenantID   string
	Recipients []string
	Subject    string
	Status     DispatchStatus
	Error      string // texto del error en estado failed
	CreatedAt  time.Time
	SentAt     *time.Time
}

// DispatchLogRepository persiste entradas del log de despacho.
type DispatchLogRepository interface {
	// Insert crea la entrada con StatusSending. Completa ID y CreatedAt.
	Insert(ctx context.Context, entry *DispatchLogEntry) error

	// MarkSent transiciona la entrada a sent y fija SentAt.
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed transiciona la entrada a failed y persiste el error.
	MarkFailed(ctx context.Context, id string, errText string) error

	// Get retorna una entrada por ID. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, id string) (*DispatchLogEntry, error)
}
