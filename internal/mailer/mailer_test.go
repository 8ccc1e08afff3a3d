package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPMailer_SendPasswordReset(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "bot",
		Password:    "pw",
		From:        "no-reply@example.com",
		FrontendURL: "https://app.example.com/",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.SendPasswordReset(context.Background(), "asha@example.com", "tok-123", 24*time.Hour))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"asha@example.com"}, gotTo)
	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Password Reset - Study Group Platform")
	assert.Contains(t, body, "https://app.example.com/reset-password?token=tok-123")
	assert.Contains(t, body, "expire in 24 hours")
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.SendPasswordReset(context.Background(), "a@example.com", "t", time.Hour)
	assert.ErrorContains(t, err, "connection refused")
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(zap.NewNop(), "http://localhost:5173")
	assert.NoError(t, m.SendPasswordReset(context.Background(), "a@example.com", "t", time.Hour))
}

func TestResetLink_EscapesToken(t *testing.T) {
	assert.Equal(t, "http://x/reset-password?token=a%2Bb", ResetLink("http://x/", "a+b"))
}
