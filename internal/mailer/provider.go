package mailer

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	sec "github.com/dropDatabas3/mailroom/internal/security/secretbox"
	"github.com/google/uuid"
)

// senderProvider resuelve credenciales SMTP por tenant.
type senderProvider struct {
	tenants   repository.TenantRepository
	masterKey string // clave maestra para descifrar passwords SMTP
}

// NewSenderProvider crea un SenderProvider respaldado por el repositorio
// de tenants.
//
// masterKey descifra las passwords SMTP persistidas (formato secretbox);
// acepta base64, hex o los 32 bytes crudos.
func NewSenderProvider(tenants repository.TenantRepository, masterKey string) SenderProvider {
	return &senderProvider{
		tenants:   tenants,
		masterKey: masterKey,
	}
}

// GetSender obtiene un Sender configurado para el tenant especificado.
// tenantSlugOrID puede ser UUID o slug del tenant.
func (p *senderProvider) GetSender(ctx context.Context, tenantSlugOrID string) (Sender, error) {
	log := logger.From(ctx).With(
		logger.Component("SenderProvider"),
		logger.TenantSlug(tenantSlugOrID),
	)

	tenant, err := p.resolveTenant(ctx, tenantSlugOrID)
	if err != nil {
		log.Error("failed to resolve tenant", logger.Err(err))
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}

	if tenant.Settings.SMTP == nil {
		log.Warn("no SMTP settings for tenant")
		return nil, fmt.Errorf("no SMTP settings for tenant %s", tenant.Slug)
	}

	smtp := tenant.Settings.SMTP

	password := smtp.Password
	if smtp.PasswordEnc != "" && password == "" {
		decrypted, err := sec.DecryptWithKey(p.masterKey, smtp.PasswordEnc)
		if err != nil {
			log.Warn("failed to decrypt SMTP password", logger.Err(err))
			// No retornar error - intentar con password vacío
		} else {
			password = decrypted
		}
	}

	sender := NewSMTPSender(
		smtp.Host,
		smtp.Port,
		smtp.FromEmail,
		smtp.Username,
		password,
	)
	if smtp.UseTLS {
		sender.TLSMode = "ssl"
	} else {
		sender.TLSMode = "auto"
	}

	log.Debug("sender created",
		logger.String("host", smtp.Host),
		logger.Int("port", smtp.Port),
	)

	return sender, nil
}

// resolveTenant intenta resolver tenant por UUID primero, luego por slug.
func (p *senderProvider) resolveTenant(ctx context.Context, tenantSlugOrID string) (*repository.Tenant, error) {
	if id, err := uuid.Parse(tenantSlugOrID); err == nil {
		if tenant, err := p.tenants.GetByID(ctx, id.String()); err == nil {
			return tenant, nil
		}
		// Si falla por UUID, intentar por slug como fallback
	}

	tenant, err := p.tenants.GetBySlug(ctx, tenantSlugOrID)
	if err != nil {
		return nil, fmt.Errorf("tenant not found: %s", tenantSlugOrID)
	}
	return tenant, nil
}
