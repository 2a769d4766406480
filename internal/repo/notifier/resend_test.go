package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendDispatch(t *testing.T) {
	var got sendEmailRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	d := NewResend(&config.ResendConfig{APIKey: "re_test", BaseURL: srv.URL + "/"}, testEmailConfig())
	require.NoError(t, d.Dispatch(context.Background(), testDigest()))

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, "monitor@example.com", got.From)
	assert.Equal(t, []string{"me@example.com", "partner@example.com"}, got.To)
	assert.Equal(t, testDigest().Subject, got.Subject)
	assert.Equal(t, "Deal ID: 1\nDeal ID: 2\n", got.Text)
}

func TestResendRejectedIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"message":"The 'to' field is required."}`))
	}))
	defer srv.Close()

	d := NewResend(&config.ResendConfig{APIKey: "re_test", BaseURL: srv.URL}, testEmailConfig())
	err := d.Dispatch(context.Background(), testDigest())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotification)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := NewResend(&config.ResendConfig{APIKey: "re_test", BaseURL: url}, testEmailConfig())
	assert.ErrorIs(t, d.Dispatch(context.Background(), testDigest()), models.ErrNotification)
}
