// Package rendercache guarda salidas renderizadas direccionadas por
// contenido: (template id, versión, fingerprint de los datos) -> entrada.
//
// Soporta:
//   - Memory (in-process, default)
//   - Redis (para correr varias réplicas detrás del mismo cache)
//
// Una entrada expirada jamás se devuelve como hit. La invalidación es por
// template id (todas sus versiones y fingerprints), nunca un flush global
// salvo Clear() explícito (operación administrativa).
package rendercache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL es el TTL por defecto de una entrada renderizada.
const DefaultTTL = time.Hour

// Entry es la salida renderizada de un template.
type Entry struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Cache define las operaciones del render cache.
//
// El cache es un recurso compartido entre despachos concurrentes: todas las
// implementaciones deben ser seguras bajo lecturas/escrituras concurrentes.
// Las fallas del backend nunca se propagan: un cache roto degrada a miss.
type Cache interface {
	// Get retorna la entrada para key, o (nil, false) en miss/expirada.
	Get(ctx context.Context, key string) (*Entry, bool)

	// Set guarda la entrada bajo key con el TTL dado (0 => DefaultTTL).
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration)

	// InvalidateTemplate elimina toda entrada cuyo key referencie el
	// template id (todas las versiones y fingerprints). Retorna cuántas borró.
	InvalidateTemplate(ctx context.Context, templateID string) int

	// Clear elimina todo. Solo para uso administrativo.
	Clear(ctx context.Context)
}

// Key arma la clave de cache para (template id, versión, fingerprint).
func Key(templateID string, version int, fingerprint string) string {
	return fmt.Sprintf("%s:%d:%s", templateID, version, fingerprint)
}

// templatePrefix es el prefijo que comparten todas las claves de un template.
func templatePrefix(templateID string) string {
	return templateID + ":"
}

func keyMatchesTemplate(key, templateID string) bool {
	return strings.HasPrefix(key, templatePrefix(templateID))
}

// Config configuración para construir un Cache.
type Config struct {
	Driver     string // "memory" | "redis"
	DefaultTTL time.Duration

	// Redis
	Addr     string
	Password string
	DB       int
	Prefix   string // prefijo de claves en redis (namespacing entre ambientes)
}

// New crea un Cache según la configuración.
func New(cfg Config) (Cache, error) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.DefaultTTL), nil
	default:
		return nil, fmt.Errorf("rendercache: driver desconocido %q", cfg.Driver)
	}
}
