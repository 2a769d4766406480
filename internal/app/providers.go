package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/metrics"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/notifier"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/sqlite"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/statefile"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repository"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"go.uber.org/fx"
)

const connectTimeout = 10 * time.Second

func bfmrConfig(c *config.Config) *config.BFMRConfig       { return &c.BFMR }
func emailConfig(c *config.Config) *config.EmailConfig     { return &c.Email }
func resendConfig(c *config.Config) *config.ResendConfig   { return &c.Resend }
func kafkaConfig(c *config.Config) *config.KafkaConfig     { return &c.Kafka }
func stateConfig(c *config.Config) *config.StateConfig     { return &c.State }
func metricsConfig(c *config.Config) *config.MetricsConfig { return &c.Metrics }

func newSeenStateRepository(lc fx.Lifecycle, cfg *config.StateConfig) (repository.SeenStateRepository, error) {
	switch cfg.Backend {
	case "sqlite":
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: open sqlite: %w", models.ErrPersistence, err)
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return db.Close()
			},
		})
		return sqlite.NewSeenStateRepository(db, cfg.Key), nil
	case "mongodb":
		db, err := newMongoDB(lc, cfg)
		if err != nil {
			return nil, err
		}
		return mongodb.NewSeenStateRepository(db, cfg.Key), nil
	default:
		return statefile.New(cfg.File), nil
	}
}

func newMongoDB(lc fx.Lifecycle, cfg *config.StateConfig) (*mongodb.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	db, err := mongodb.NewConnection(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close(ctx)
		},
	})
	return db, nil
}

func newDispatcher(
	lc fx.Lifecycle,
	email *config.EmailConfig,
	resend *config.ResendConfig,
	kafka *config.KafkaConfig,
) (notifier.Dispatcher, error) {
	dispatchers := make([]notifier.Dispatcher, 0, len(email.Transports))
	for _, transport := range email.Transports {
		switch transport {
		case "smtp":
			dispatchers = append(dispatchers, notifier.NewSMTP(email))
		case "resend":
			dispatchers = append(dispatchers, notifier.NewResend(resend, email))
		case "kafka":
			k := notifier.NewKafka(kafka)
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return k.Close()
				},
			})
			dispatchers = append(dispatchers, k)
		case "log":
			dispatchers = append(dispatchers, notifier.NewLog(logger.Named("digest")))
		default:
			return nil, fmt.Errorf("%w: unknown transport %q", models.ErrConfiguration, transport)
		}
	}
	return notifier.NewMulti(dispatchers...), nil
}

func newRecorder(cfg *config.MetricsConfig) metrics.Recorder {
	return metrics.NewPusher(cfg)
}
