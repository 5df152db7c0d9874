// Package mailer delivers HTML notifications through a configurable transport.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New selects the transport configured by MAIL_DRIVER.
func New(cfg config.MailConfig, schoolName string, logger *zap.Logger) (Sender, error) {
	switch cfg.Driver {
	case config.MailDriverSMTP:
		return NewSMTPSender(cfg, schoolName), nil
	case config.MailDriverSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid driver requires SENDGRID_API_KEY")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, schoolName, cfg.From), nil
	case "", config.MailDriverLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.Driver)
	}
}
