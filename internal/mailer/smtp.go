package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	mail "github.com/go-mail/mail"
	"github.com/google/uuid"
)

// DialTimeout acota dial + handshake + envío por intento.
const DialTimeout = 30 * time.Second

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// NewSMTPSender crea un nuevo SMTPSender con los parámetros dados.
func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

// FromConfig crea un SMTPSender desde SMTPConfig. UseTLS significa TLS
// implícito (SMTPS, típicamente puerto 465); STARTTLS ya lo negocia "auto".
func FromConfig(cfg SMTPConfig) *SMTPSender {
	s := NewSMTPSender(cfg.Host, cfg.Port, cfg.FromEmail, cfg.Username, cfg.Password)
	if cfg.TLSMode != "" {
		s.TLSMode = cfg.TLSMode
	} else if cfg.UseTLS {
		s.TLSMode = "ssl"
	}
	return s
}

// Send envía el mensaje y retorna el Message-ID asignado. Los errores de
// transporte salen ya clasificados como *DeliveryError.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) (string, error) {
	log := logger.From(ctx).With(
		logger.Component("SMTPSender"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.Recipients(len(msg.To)),
	)

	if err := ctx.Err(); err != nil {
		return "", Classify(err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.Host)

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}

	// Preferimos multipart/alternative (txt + html)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
	}
	if msg.HTML != "" {
		if msg.Text == "" {
			m.SetBody("text/html", msg.HTML)
		} else {
			m.AddAlternative("text/html", msg.HTML)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.Timeout = DialTimeout
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	log.Debug("sending email", logger.String("tls_mode", s.TLSMode), logger.MessageID(messageID))

	if err := d.DialAndSend(m); err != nil {
		diag := Classify(err)
		log.Error("smtp send failed",
			logger.String("diag", diag.Code),
			logger.Bool("transient", diag.Transient),
			logger.Err(err),
		)
		return "", diag
	}

	log.Info("email sent", logger.MessageID(messageID))
	return messageID, nil
}
