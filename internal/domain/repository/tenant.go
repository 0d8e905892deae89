package repository

import (
	"context"
	"time"
)

// Tenant representa un arrendatario del sistema.
type Tenant struct {
	ID        string
	Slug      string
	Name      string
	Settings  TenantSettings
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantSettings contiene la configuración de envío de un tenant.
type TenantSettings struct {
	SMTP    *SMTPSettings
	Webhook *WebhookSettings
}

// SMTPSettings credenciales de transporte del tenant.
type SMTPSettings struct {
	Host        string
	Port        int
	Username    string
	Password    string // Plain (no persiste)
	PasswordEnc string // Encrypted (AES-GCM, secretbox)
	FromEmail   string
	UseTLS      bool
}

// WebhookSettings destino de notificaciones de despacho del tenant.
type WebhookSettings struct {
	URL string
}

// TenantRepository define operaciones de lectura sobre tenants.
// El alta/edición de tenants es del plano de administración, fuera de este
// servicio; acá solo se resuelven credenciales por despacho.
type TenantRepository interface {
	// GetBySlug busca un tenant por su slug.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// GetByID busca un tenant por su UUID.
	GetByID(ctx context.Context, id string) (*Tenant, error)
}
