package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/util"
	"go.uber.org/zap"
)

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type sendEmailResponse struct {
	ID string `json:"id"`
}

// Resend posts the digest to the Resend email API.
type Resend struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	from     string
	to       []string
	log      *zap.SugaredLogger
}

func NewResend(rc *config.ResendConfig, ec *config.EmailConfig) *Resend {
	log := logger.Named("resend")
	return &Resend{
		http: util.NewRestyClient(util.RestyOptions{
			Timeout: ec.Timeout,
			Logger:  log,
		}),
		endpoint: strings.TrimRight(rc.BaseURL, "/") + "/emails",
		apiKey:   rc.APIKey,
		from:     ec.From,
		to:       Recipients(ec.To),
		log:      log,
	}
}

func (r *Resend) Name() string { return "resend" }

func (r *Resend) Dispatch(ctx context.Context, digest *models.Digest) error {
	if err := checkDigest(digest); err != nil {
		return err
	}

	var result sendEmailResponse
	resp, err := r.http.R().
		SetContext(ctx).
		SetAuthToken(r.apiKey).
		SetBody(sendEmailRequest{
			From:    r.from,
			To:      r.to,
			Subject: digest.Subject,
			Text:    digest.Body,
		}).
		SetResult(&result).
		Post(r.endpoint)
	if err != nil {
		r.log.Errorw("failed to send digest", "error", err)
		return fmt.Errorf("%w: resend request: %w", models.ErrNotification, err)
	}
	if resp.IsError() {
		r.log.Errorw("resend rejected digest", "status", resp.StatusCode(), "body", resp.String())
		return fmt.Errorf("%w: resend returned status %d", models.ErrNotification, resp.StatusCode())
	}

	r.log.Infow("digest sent", "email_id", result.ID, "listings", len(digest.Listings))
	return nil
}
