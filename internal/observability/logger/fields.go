package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar del dominio de despacho. Mantener estos nombres estables:
// los dashboards filtran por ellos.

// TenantID crea un campo para el ID del tenant.
func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

// TenantSlug crea un campo para el slug del tenant.
func TenantSlug(v string) zap.Field { return zap.String("tenant_slug", v) }

// TemplateSlug crea un campo para el slug del template.
func TemplateSlug(v string) zap.Field { return zap.String("template_slug", v) }

// TemplateVersion crea un campo para la versión del template.
func TemplateVersion(v int) zap.Field { return zap.Int("template_version", v) }

// LogID crea un campo para el ID de la entrada del dispatch log.
func LogID(v string) zap.Field { return zap.String("log_id", v) }

// MessageID crea un campo para el message-id del transporte.
func MessageID(v string) zap.Field { return zap.String("message_id", v) }

// Attempt crea un campo para el número de intento de entrega.
func Attempt(v int) zap.Field { return zap.Int("attempt", v) }

// Recipients crea un campo para la cantidad de destinatarios.
func Recipients(v int) zap.Field { return zap.Int("recipients", v) }

// CacheKey crea un campo para la clave del render cache.
func CacheKey(v string) zap.Field { return zap.String("cache_key", v) }

// Campos de sistema / request.

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Campos genéricos.

// String crea un campo string genérico.
func String(key, v string) zap.Field { return zap.String(key, v) }

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field { return zap.Int(key, v) }

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
