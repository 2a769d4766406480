package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTP sends the digest as a plain-text mail over STARTTLS, authenticating
// as the sender.
type SMTP struct {
	server   string
	port     int
	from     string
	to       []string
	password string
	timeout  time.Duration
	log      *zap.SugaredLogger
}

func NewSMTP(cfg *config.EmailConfig) *SMTP {
	return &SMTP{
		server:   cfg.SMTPServer,
		port:     cfg.SMTPPort,
		from:     cfg.From,
		to:       Recipients(cfg.To),
		password: cfg.Password,
		timeout:  cfg.Timeout,
		log:      logger.Named("smtp"),
	}
}

func (s *SMTP) Name() string { return "smtp" }

func (s *SMTP) message(digest *models.Digest) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %w", models.ErrNotification, s.from, err)
	}
	if err := msg.To(s.to...); err != nil {
		return nil, fmt.Errorf("%w: recipients: %w", models.ErrNotification, err)
	}
	msg.Subject(digest.Subject)
	msg.SetBodyString(mail.TypeTextPlain, digest.Body)
	if !digest.CheckedAt.IsZero() {
		msg.SetDateWithValue(digest.CheckedAt)
	}
	return msg, nil
}

func (s *SMTP) Dispatch(ctx context.Context, digest *models.Digest) error {
	if err := checkDigest(digest); err != nil {
		return err
	}
	msg, err := s.message(digest)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.from),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if s.timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.timeout))
	}
	client, err := mail.NewClient(s.server, opts...)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %w", models.ErrNotification, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.log.Errorw("failed to send digest", "server", s.server, "port", s.port, "error", err)
		return fmt.Errorf("%w: smtp send: %w", models.ErrNotification, err)
	}
	s.log.Infow("digest sent", "server", s.server, "recipients", len(s.to), "listings", len(digest.Listings))
	return nil
}
