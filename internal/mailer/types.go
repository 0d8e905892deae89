package mailer

import "context"

// ─── Mensaje saliente ───

// Message es un email listo para transporte: contenido ya renderizado.
type Message struct {
	To      []string
	Cc      []string
	Bcc     []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

// Sender envía un Message y retorna el Message-ID asignado.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// SenderProvider resuelve el Sender configurado de un tenant.
type SenderProvider interface {
	GetSender(ctx context.Context, tenantSlugOrID string) (Sender, error)
}

// ─── Configuración SMTP ───

// SMTPConfig contiene la configuración para conectarse a un servidor SMTP.
type SMTPConfig struct {
	Host      string // Host del servidor SMTP
	Port      int    // Puerto (default 587)
	Username  string // Usuario para autenticación
	Password  string // Password (plain, ya descifrada)
	FromEmail string // Email del remitente
	UseTLS    bool   // TLS implícito (SMTPS)
	TLSMode   string // "auto" | "starttls" | "ssl" | "none"
}
