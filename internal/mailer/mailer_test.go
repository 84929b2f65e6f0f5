package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"harfzaar/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledWithoutHost(t *testing.T) {
	m := New(&config.Config{})
	assert.ErrorIs(t, m.Send(context.Background(), "a@b.c", "s", "b"), ErrNotConfigured)
}

func TestSMTP_Send(t *testing.T) {
	m := New(&config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "user",
		SMTPPassword: "pass",
		SMTPFrom:     "noreply@harfzaar.pk",
	}).(*SMTP)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		assert.NotNil(t, a)
		assert.Equal(t, "noreply@harfzaar.pk", from)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "poet@example.com", "OTP Verification", "Your OTP is 123456"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"poet@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: OTP Verification\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nYour OTP is 123456")
}

func TestSMTP_Send_Errors(t *testing.T) {
	m := &SMTP{from: "x@y.z", send: func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("421 busy")
	}}
	assert.Error(t, m.Send(context.Background(), "a@b.c", "s", "b"))
	assert.Error(t, m.Send(context.Background(), "a@b.c\r\nBcc: x@y.z", "s", "b"))

	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		time.Sleep(time.Second)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Send(ctx, "a@b.c", "s", "b"), context.DeadlineExceeded)
}
