package mailer

import (
	"context"
	"fmt"

	mail "gopkg.in/mail.v2"

	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
)

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPSender relays through an SMTP server.
type SMTPSender struct {
	dialer   dialer
	from     string
	fromName string
}

// NewSMTPSender builds an SMTP transport. SMTP_SECURE selects implicit TLS.
func NewSMTPSender(cfg config.MailConfig, fromName string) *SMTPSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return &SMTPSender{dialer: d, from: cfg.From, fromName: fromName}
}

// Send delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
