package bfmr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/util"
	"go.uber.org/zap"
)

// Client retrieves the raw deals payload from the BFMR API.
type Client interface {
	FetchDeals(ctx context.Context) ([]byte, error)
}

type client struct {
	http         *resty.Client
	endpoint     string
	keyHeader    string
	secretHeader string
	apiKey       string
	apiSecret    string
	maxAttempts  int
	log          *zap.SugaredLogger
}

func NewClient(cfg *config.BFMRConfig) Client {
	log := logger.Named("bfmr")
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	httpClient := util.NewRestyClient(util.RestyOptions{
		Timeout:        cfg.Timeout,
		RetryCount:     attempts - 1,
		RetryWait:      cfg.RetryDelay,
		RetryCondition: shouldRetry,
		Logger:         log,
	})
	httpClient.AddRetryHook(func(r *resty.Response, err error) {
		if err != nil {
			log.Warnw("deals request failed, retrying", "attempt", attemptOf(r), "error", err)
			return
		}
		log.Warnw("deals request returned unexpected status, retrying", "attempt", attemptOf(r), "status", r.StatusCode())
	})

	return &client{
		http:         httpClient,
		endpoint:     strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.DealsPath, "/"),
		keyHeader:    cfg.KeyHeader,
		secretHeader: cfg.SecretHeader,
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		maxAttempts:  attempts,
		log:          log,
	}
}

// shouldRetry retries every status except 200 and 401, and every transport
// error go-retryablehttp considers recoverable (timeouts included).
func shouldRetry(r *resty.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		return util.DefaultRetryCondition(nil, err)
	}
	if r == nil {
		return true
	}
	switch r.StatusCode() {
	case http.StatusOK, http.StatusUnauthorized:
		return false
	default:
		return true
	}
}

func attemptOf(r *resty.Response) int {
	if r == nil || r.Request == nil {
		return 0
	}
	return r.Request.Attempt
}

func (c *client) FetchDeals(ctx context.Context) ([]byte, error) {
	started := time.Now()
	c.log.Infow("fetching deals", "endpoint", c.endpoint, "max_attempts", c.maxAttempts)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(c.keyHeader, c.apiKey).
		SetHeader(c.secretHeader, c.apiSecret).
		SetHeader("Accept", "application/json").
		Get(c.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch deals: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: after %d attempt(s): %w", models.ErrFetchExhausted, attemptOf(resp), err)
	}

	c.log.Infow("deals response", "status", resp.StatusCode(), "attempt", attemptOf(resp),
		"bytes", len(resp.Body()), "elapsed", time.Since(started))

	switch resp.StatusCode() {
	case http.StatusOK:
		return resp.Body(), nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: check BFMR API credentials", models.ErrAuthentication)
	default:
		return nil, fmt.Errorf("%w: after %d attempt(s): unexpected status %d",
			models.ErrFetchExhausted, attemptOf(resp), resp.StatusCode())
	}
}
