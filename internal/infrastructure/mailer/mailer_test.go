package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/medbill/backend/internal/application/billing"
	infraconfig "github.com/medbill/backend/internal/infrastructure/config"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *infraconfig.MailConfig
	}{
		{name: "nil config", cfg: nil},
		{name: "missing host", cfg: &infraconfig.MailConfig{From: "billing@example.com"}},
		{name: "missing from", cfg: &infraconfig.MailConfig{Host: "smtp.example.com", Port: 587}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMTPMailer(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSMTPMailerRejectsInvalidMessages(t *testing.T) {
	m, err := NewSMTPMailer(&infraconfig.MailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "billing@example.com",
	})
	require.NoError(t, err)

	err = m.Send(context.Background(), billingapp.OutgoingMail{Subject: "x", Body: "y"})
	assert.Error(t, err)

	err = m.Send(context.Background(), billingapp.OutgoingMail{To: []string{"a@example.com"}, Body: "y"})
	assert.Error(t, err)
}

func TestNoopMailerAcceptsEverything(t *testing.T) {
	m := NewNoopMailer(nil)
	err := m.Send(context.Background(), billingapp.OutgoingMail{
		To:      []string{"center@example.com"},
		Subject: "Invoice KRPL/2025-2026/04/001",
		Body:    "Please find your invoice attached.",
	})
	assert.NoError(t, err)
}
