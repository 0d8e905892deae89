package rendercache

import (
	"context"
	"time"

	"github.com/dropDatabas3/mailroom/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
)

// memoryCache implementa Cache sobre patrickmn/go-cache.
// go-cache ya garantiza que una entrada expirada nunca se devuelve; el
// sweep de fondo (cada minuto) solo recupera memoria.
type memoryCache struct {
	c          *gocache.Cache
	defaultTTL time.Duration
}

// NewMemory crea un cache in-process con el TTL por defecto dado.
func NewMemory(defaultTTL time.Duration) Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &memoryCache{
		c:          gocache.New(defaultTTL, time.Minute),
		defaultTTL: defaultTTL,
	}
}

func (m *memoryCache) Get(_ context.Context, key string) (*Entry, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		metrics.RenderCacheMisses.Inc()
		return nil, false
	}
	e, ok := v.(*Entry)
	if !ok {
		metrics.RenderCacheMisses.Inc()
		return nil, false
	}
	metrics.RenderCacheHits.Inc()
	return e, true
}

func (m *memoryCache) Set(_ context.Context, key string, e *Entry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.c.Set(key, e, ttl)
}

func (m *memoryCache) InvalidateTemplate(_ context.Context, templateID string) int {
	n := 0
	for key := range m.c.Items() {
		if keyMatchesTemplate(key, templateID) {
			m.c.Delete(key)
			n++
		}
	}
	return n
}

func (m *memoryCache) Clear(_ context.Context) {
	m.c.Flush()
}
