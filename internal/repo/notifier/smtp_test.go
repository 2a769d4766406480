package notifier

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmailConfig() *config.EmailConfig {
	return &config.EmailConfig{
		SMTPServer: "127.0.0.1",
		SMTPPort:   587,
		From:       "monitor@example.com",
		To:         "me@example.com, partner@example.com",
		Password:   "app-password",
		Timeout:    2 * time.Second,
	}
}

func TestSMTPMessage(t *testing.T) {
	s := NewSMTP(testEmailConfig())
	msg, err := s.message(testDigest())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "monitor@example.com")
	assert.Contains(t, raw, "me@example.com")
	assert.Contains(t, raw, "partner@example.com")
	assert.Contains(t, raw, "Subject:")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "Deal ID: 1")
}

func TestSMTPMessageInvalidSender(t *testing.T) {
	cfg := testEmailConfig()
	cfg.From = "not an address"
	_, err := NewSMTP(cfg).message(testDigest())
	assert.ErrorIs(t, err, models.ErrNotification)
}

func TestSMTPDispatchUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := testEmailConfig()
	cfg.SMTPPort = port
	err = NewSMTP(cfg).Dispatch(context.Background(), testDigest())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotification)
}
