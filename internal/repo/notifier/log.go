package notifier

import (
	"context"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"go.uber.org/zap"
)

// Log writes the digest to the logger instead of delivering it.
type Log struct {
	log *zap.SugaredLogger
}

func NewLog(log *zap.SugaredLogger) *Log {
	return &Log{log: log}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Dispatch(_ context.Context, digest *models.Digest) error {
	if err := checkDigest(digest); err != nil {
		return err
	}
	l.log.Infow("digest", "run_id", digest.RunID, "subject", digest.Subject,
		"listings", len(digest.Listings), "body", digest.Body)
	return nil
}
