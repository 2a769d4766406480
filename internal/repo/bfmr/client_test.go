package bfmr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.BFMRConfig {
	return &config.BFMRConfig{
		APIKey:       "key",
		APISecret:    "secret",
		BaseURL:      baseURL,
		DealsPath:    "/api/v2/deals",
		KeyHeader:    "API-KEY",
		SecretHeader: "API-SECRET",
		MaxAttempts:  3,
		RetryDelay:   10 * time.Millisecond,
		Timeout:      time.Second,
	}
}

func TestFetchDealsSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/deals", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("API-KEY"))
		assert.Equal(t, "secret", r.Header.Get("API-SECRET"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"deals": []}`))
	}))
	defer srv.Close()

	body, err := NewClient(testConfig(srv.URL)).FetchDeals(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"deals": []}`, string(body))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDealsUnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).FetchDeals(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAuthentication)
	assert.NotErrorIs(t, err, models.ErrFetchExhausted)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDealsRetriesUnexpectedStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"deal_id": "A"}]`))
	}))
	defer srv.Close()

	body, err := NewClient(testConfig(srv.URL)).FetchDeals(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"deal_id": "A"}]`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDealsExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).FetchDeals(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrFetchExhausted)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDealsRecoversFromTimeouts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-r.Context().Done():
			}
			return
		}
		w.Write([]byte(`{"data": [{"deal_id": "third"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	body, err := NewClient(cfg).FetchDeals(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": [{"deal_id": "third"}]}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDealsTimeoutsExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 30 * time.Millisecond
	cfg.MaxAttempts = 2

	_, err := NewClient(cfg).FetchDeals(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrFetchExhausted)
}

func TestFetchDealsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxAttempts = 1

	_, err := NewClient(cfg).FetchDeals(context.Background())
	assert.ErrorIs(t, err, models.ErrFetchExhausted)
	assert.Equal(t, int32(1), calls.Load())
}
