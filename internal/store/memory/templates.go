package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/google/uuid"
)

// TemplateRepository es la implementación en memoria de
// repository.TemplateRepository.
type TemplateRepository struct {
	mu sync.RWMutex
	// tenantID -> slug -> versiones ascendentes
	byTenant map[string]map[string][]*repository.TemplateRecord
}

// NewTemplateRepository crea un repositorio de templates vacío.
func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{
		byTenant: make(map[string]map[string][]*repository.TemplateRecord),
	}
}

func (r *TemplateRepository) GetBySlug(_ context.Context, tenantID, slug string, version *int) (*repository.TemplateRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.byTenant[tenantID][slug]
	if len(versions) == 0 {
		return nil, repository.ErrNotFound
	}

	if version != nil {
		for _, rec := range versions {
			if rec.Version == *version && rec.Active {
				return clone(rec), nil
			}
		}
		return nil, repository.ErrNotFound
	}

	// versión activa más alta
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].Active {
			return clone(versions[i]), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *TemplateRepository) GetByID(_ context.Context, tenantID, id string) (*repository.TemplateRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, versions := range r.byTenant[tenantID] {
		for _, rec := range versions {
			if rec.ID == id && rec.Active {
				return clone(rec), nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *TemplateRepository) InsertVersion(_ context.Context, rec *repository.TemplateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slugs, ok := r.byTenant[rec.TenantID]
	if !ok {
		slugs = make(map[string][]*repository.TemplateRecord)
		r.byTenant[rec.TenantID] = slugs
	}
	versions := slugs[rec.Slug]

	next := 1
	if n := len(versions); n > 0 {
		next = versions[n-1].Version + 1
	}
	if rec.Version != 0 {
		for _, v := range versions {
			if v.Version == rec.Version {
				return repository.ErrConflict
			}
		}
	} else {
		rec.Version = next
	}

	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	versions = append(versions, clone(rec))
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	slugs[rec.Slug] = versions
	return nil
}

func (r *TemplateRepository) UpdateMeta(_ context.Context, tenantID, slug, name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.byTenant[tenantID][slug]
	if len(versions) == 0 {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	for _, rec := range versions {
		rec.Name = name
		rec.Active = active
		rec.UpdatedAt = now
	}
	return nil
}

func (r *TemplateRepository) Deactivate(_ context.Context, tenantID, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.byTenant[tenantID][slug]
	if len(versions) == 0 {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	for _, rec := range versions {
		rec.Active = false
		rec.UpdatedAt = now
	}
	return nil
}

func (r *TemplateRepository) CountActive(_ context.Context, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, versions := range r.byTenant[tenantID] {
		for _, rec := range versions {
			if rec.Active {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *TemplateRepository) ListVersions(_ context.Context, tenantID, slug string) ([]repository.TemplateRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.byTenant[tenantID][slug]
	if len(versions) == 0 {
		return nil, repository.ErrNotFound
	}
	out := make([]repository.TemplateRecord, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, *versions[i])
	}
	return out, nil
}

func clone(rec *repository.TemplateRecord) *repository.TemplateRecord {
	c := *rec
	return &c
}
