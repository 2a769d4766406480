package app

import (
	"context"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/bfmr"
	"github.com/nguyentranbao-ct/deal-monitor/internal/usecase"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"
)

const stopTimeout = 15 * time.Second

// New builds the container for a single monitor run. extra options are
// appended after the defaults, which lets callers populate or decorate.
func New(conf *config.Config, opts usecase.RunOptions, extra ...fx.Option) *fx.App {
	log := logger.Named("app")
	log.Debugw("config loaded",
		"state_backend", conf.State.Backend,
		"transports", conf.Email.Transports,
		"seen_policy", conf.Monitor.Policy(),
		"retailer_match", conf.Monitor.RetailerMatch,
	)
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(conf, opts),
		fx.Provide(
			bfmrConfig,
			emailConfig,
			resendConfig,
			kafkaConfig,
			stateConfig,
			metricsConfig,

			bfmr.NewClient,
			newSeenStateRepository,
			newDispatcher,
			newRecorder,

			usecase.NewComposer,
			usecase.NewMonitorUsecase,
		),
		fx.Options(extra...),
	)
}

// RunOnce starts the container, executes one run and stops it again.
// Errors raised while building or starting the container are returned
// without a summary.
func RunOnce(ctx context.Context, conf *config.Config, opts usecase.RunOptions) (*models.RunSummary, error) {
	var monitor usecase.MonitorUsecase
	app := New(conf, opts, fx.Populate(&monitor))
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start app: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Named("app").Warnw("failed to stop app cleanly", "error", err)
		}
	}()

	return monitor.Run(ctx)
}
