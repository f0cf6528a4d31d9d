package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/modbuspro/license-server/pkg/config"
)

// Message is a single outbound HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer dispatches a message once, best-effort. Callers decide whether a
// failure is fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends HTML mail over plain SMTP.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer validates the transport configuration and returns a mailer.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port == "" {
		return nil, errors.New("smtp port is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// Send delivers the message through the configured relay. The context is
// accepted for interface symmetry; net/smtp does not support cancellation
// mid-dial.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient is required")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	payload := BuildMIMEMessage(m.cfg.From, msg)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, payload); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// BuildMIMEMessage renders the raw SMTP payload for an HTML email.
func BuildMIMEMessage(from string, msg Message) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, msg.To, msg.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			msg.HTML,
	)
}
