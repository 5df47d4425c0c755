// Package notify sends staff e-mail notifications, such as a pickup that was
// automatically marked as missed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned by a sender built without credentials.
var ErrNotConfigured = errors.New("notify: sender not configured")

// EmailSender delivers one e-mail. Implementations can be swapped (SendGrid,
// SMTP, stub) without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text e-mail.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends e-mail through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridSender creates a SendGrid sender, or nil when no API key is set.
func NewSendGridSender(cfg SendGridConfig) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "MedicAI"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through SendGrid: %d %s", resp.StatusCode, resp.Body)
	}
	slog.Info("SendGridSender.Send succeeded", "to", msg.To, "subject", msg.Subject, "status", resp.StatusCode)
	return nil
}

// SMTPConfig holds configuration for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends e-mail through an SMTP relay with STARTTLS.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates an SMTP sender, or nil when no host or username is set.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Host == "" || cfg.Username == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.dialer == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("while sending mail through SMTP %s: %w", s.dialer.Host, err)
	}
	slog.Info("SMTPSender.Send succeeded", "to", msg.To, "subject", msg.Subject)
	return nil
}

// StubSender logs e-mails instead of sending them. It is used when no
// e-mail backend is configured.
type StubSender struct{}

func (StubSender) Send(_ context.Context, msg EmailMessage) error {
	slog.Info("StubSender: would send email", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Select returns the first configured sender: SendGrid, then SMTP, then the stub.
func Select(sg SendGridConfig, smtp SMTPConfig) EmailSender {
	if s := NewSendGridSender(sg); s != nil {
		return s
	}
	if s := NewSMTPSender(smtp); s != nil {
		return s
	}
	return StubSender{}
}
