// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"harfzaar/internal/config"
	"harfzaar/internal/middleware"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("mailer: SMTP is not configured")

// Mailer delivers a plain-text message to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New returns an SMTP mailer when SMTP is configured, otherwise Disabled.
func New(cfg *config.Config) Mailer {
	if !cfg.MailEnabled() {
		return Disabled{}
	}
	return &SMTP{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		host:     cfg.SMTPHost,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		send:     smtp.SendMail,
	}
}

// SMTP sends mail through a submission server using PLAIN auth when credentials are set.
type SMTP struct {
	addr     string
	host     string
	username string
	password string
	from     string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("mailer: header injection rejected")
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	msg := buildMessage(m.from, to, subject, body, time.Now())

	done := make(chan error, 1)
	go func() { done <- m.send(m.addr, auth, m.from, []string{to}, msg) }()

	select {
	case err := <-done:
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "email delivery failed",
				slog.String("subject", subject),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("mailer: send: %w", err)
		}
		middleware.Logger.InfoContext(ctx, "email sent", slog.String("subject", subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, to, subject, body string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// Disabled refuses every message.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string, string) error {
	return ErrNotConfigured
}
