package util

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
)

type nopLogger struct{}

func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

type RestyOptions struct {
	// Timeout bounds each attempt, not the whole retry sequence.
	Timeout time.Duration
	// RetryCount is the number of retries after the first attempt.
	RetryCount int
	// RetryWait is the fixed delay between attempts.
	RetryWait time.Duration
	// RetryCondition replaces the default transport-level policy when set.
	RetryCondition resty.RetryConditionFunc
	Logger         resty.Logger
}

// DefaultRetryCondition retries what go-retryablehttp considers recoverable.
func DefaultRetryCondition(r *resty.Response, err error) bool {
	ctx := context.Background()
	if r != nil && r.Request != nil {
		ctx = r.Request.Context()
	}
	var raw *http.Response
	if r != nil {
		raw = r.RawResponse
	}
	retry, _ := retryablehttp.DefaultRetryPolicy(ctx, raw, err)
	return retry
}

func NewRestyClient(opts RestyOptions) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	condition := opts.RetryCondition
	if condition == nil {
		condition = DefaultRetryCondition
	}

	c := resty.
		New().
		SetRetryCount(opts.RetryCount).
		SetLogger(opts.Logger).
		SetTimeout(opts.Timeout)
	if opts.RetryCount > 0 {
		c.SetRetryWaitTime(opts.RetryWait).
			SetRetryMaxWaitTime(opts.RetryWait).
			AddRetryCondition(condition)
	}
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal
	return c
}
