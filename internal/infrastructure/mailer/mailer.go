// Package mailer sends bill notifications over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	billingapp "github.com/medbill/backend/internal/application/billing"
	infraconfig "github.com/medbill/backend/internal/infrastructure/config"
)

// Ensure SMTPMailer implements Mailer
var _ billingapp.Mailer = (*SMTPMailer)(nil)

// SMTPMailer delivers messages through a configured SMTP relay
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger *zap.Logger
}

// SMTPMailerOption is a functional option for configuring SMTPMailer
type SMTPMailerOption func(*SMTPMailer)

// WithLogger sets a custom logger for SMTPMailer
func WithLogger(logger *zap.Logger) SMTPMailerOption {
	return func(m *SMTPMailer) {
		m.logger = logger
	}
}

// NewSMTPMailer creates a mailer from configuration
func NewSMTPMailer(cfg *infraconfig.MailConfig, opts ...SMTPMailerOption) (*SMTPMailer, error) {
	if cfg == nil {
		return nil, errors.New("mail configuration is required")
	}
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail from address is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.UseTLS {
		clientOpts = append(clientOpts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		clientOpts = append(clientOpts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	m := &SMTPMailer{
		client: client,
		from:   cfg.From,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Send delivers one message with its attachments
func (m *SMTPMailer) Send(ctx context.Context, msg billingapp.OutgoingMail) error {
	if len(msg.To) == 0 {
		return errors.New("at least one recipient is required")
	}
	if msg.Subject == "" {
		return errors.New("subject is required")
	}

	message := mail.NewMsg()
	if err := message.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := message.To(msg.To...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	message.Subject(msg.Subject)

	if msg.HTMLBody != "" {
		message.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
		if msg.Body != "" {
			message.AddAlternativeString(mail.TypeTextPlain, msg.Body)
		}
	} else {
		message.SetBodyString(mail.TypeTextPlain, msg.Body)
	}

	for _, att := range msg.Attachments {
		opts := []mail.FileOption{}
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := message.AttachReader(att.FileName, bytes.NewReader(att.Data), opts...); err != nil {
			return fmt.Errorf("failed to attach %s: %w", att.FileName, err)
		}
	}

	if err := m.client.DialAndSendWithContext(ctx, message); err != nil {
		m.logger.Error("Failed to send mail",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info("Mail sent",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)))
	return nil
}

// NoopMailer drops every message. Used when mail is disabled in
// configuration.
type NoopMailer struct {
	logger *zap.Logger
}

// NewNoopMailer creates a mailer that logs and discards messages
func NewNoopMailer(logger *zap.Logger) *NoopMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopMailer{logger: logger}
}

// Send logs the message and drops it
func (m *NoopMailer) Send(_ context.Context, msg billingapp.OutgoingMail) error {
	m.logger.Info("Mail delivery disabled, dropping message",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// Ensure NoopMailer implements Mailer
var _ billingapp.Mailer = (*NoopMailer)(nil)
