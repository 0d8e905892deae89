package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/google/uuid"
)

// DispatchLogRepository es la implementación en memoria de
// repository.DispatchLogRepository.
type DispatchLogRepository struct {
	mu      sync.RWMutex
	entries map[string]*repository.DispatchLogEntry
}

// NewDispatchLogRepository crea un log de despacho vacío.
func NewDispatchLogRepository() *DispatchLogRepository {
	return &DispatchLogRepository{
		entries: make(map[string]*repository.DispatchLogEntry),
	}
}

func (r *DispatchLogRepository) Insert(_ context.Context, entry *repository.DispatchLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Status = repository.StatusSending
	entry.CreatedAt = time.Now().UTC()

	c := *entry
	c.Recipients = append([]string(nil), entry.Recipients...)
	r.entries[entry.ID] = &c
	return nil
}

func (r *DispatchLogRepository) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	entry.Status = repository.StatusSent
	entry.SentAt = &sentAt
	return nil
}

func (r *DispatchLogRepository) MarkFailed(_ context.Context, id string, errText string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	entry.Status = repository.StatusFailed
	entry.Error = errText
	return nil
}

func (r *DispatchLogRepository) Get(_ context.Context, id string) (*repository.DispatchLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *entry
	c.Recipients = append([]string(nil), entry.Recipients...)
	return &c, nil
}
