// Package mailer delivers transactional email such as password reset links.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mailer sends password reset instructions.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string, ttl time.Duration) error
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// SMTPMailer sends plain-text mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, token string, ttl time.Duration) error {
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	msg := buildMessage(m.cfg.From, to, "Password Reset - Study Group Platform",
		resetBody(ResetLink(m.cfg.FrontendURL, token), token, ttl))

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

// LogMailer writes the reset link to the log instead of sending mail. Used
// when no SMTP relay is configured.
type LogMailer struct {
	log         *zap.Logger
	frontendURL string
}

func NewLogMailer(log *zap.Logger, frontendURL string) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log, frontendURL: frontendURL}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, token string, ttl time.Duration) error {
	m.log.Info("password reset requested",
		zap.String("to", to),
		zap.String("link", ResetLink(m.frontendURL, token)),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// ResetLink builds the frontend URL that carries the reset token.
func ResetLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func resetBody(link, token string, ttl time.Duration) string {
	var b strings.Builder
	b.WriteString("Password Reset Request\r\n\r\n")
	b.WriteString("You requested to reset your password for the Study Group Platform.\r\n\r\n")
	fmt.Fprintf(&b, "Click this link to reset your password: %s\r\n\r\n", link)
	fmt.Fprintf(&b, "Or use this token manually: %s\r\n\r\n", token)
	fmt.Fprintf(&b, "This link will expire in %s.\r\n\r\n", humanDuration(ttl))
	b.WriteString("If you didn't request this, please ignore this email.\r\n")
	return b.String()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
