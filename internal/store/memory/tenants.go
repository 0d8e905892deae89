package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
)

// TenantRepository es la implementación en memoria de
// repository.TenantRepository. Se siembra con Put.
type TenantRepository struct {
	mu     sync.RWMutex
	byID   map[string]*repository.Tenant
	bySlug map[string]*repository.Tenant
}

// NewTenantRepository crea un repositorio de tenants vacío.
func NewTenantRepository() *TenantRepository {
	return &TenantRepository{
		byID:   make(map[string]*repository.Tenant),
		bySlug: make(map[string]*repository.Tenant),
	}
}

// Put agrega o reemplaza un tenant.
func (r *TenantRepository) Put(t *repository.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.byID[t.ID] = &c
	r.bySlug[t.Slug] = &c
}

func (r *TenantRepository) GetBySlug(_ context.Context, slug string) (*repository.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.bySlug[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *TenantRepository) GetByID(_ context.Context, id string) (*repository.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *t
	return &c, nil
}
