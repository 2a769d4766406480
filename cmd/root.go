package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nguyentranbao-ct/deal-monitor/internal/app"
	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/internal/usecase"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	ExitOK            = 0
	ExitRuntimeError  = 1
	ExitConfiguration = 2
)

func newRootCmd() *cobra.Command {
	var opts usecase.RunOptions
	cmd := &cobra.Command{
		Use:           "deal-monitor",
		Short:         "Report new or returning BFMR deals by email",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Init(logger.Options{Level: conf.Log.Level, Format: conf.Log.Format}); err != nil {
				return fmt.Errorf("%w: logger: %w", models.ErrConfiguration, err)
			}

			_, err = app.RunOnce(cmd.Context(), conf, opts)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "fetch and compose without sending mail or saving state")
	cmd.Flags().BoolVar(&opts.PrintNew, "print-new", false, "log every new or returning deal")
	return cmd
}

// ExitCode maps a run error to the process exit status. A run skipped
// because the API could not be reached counts as completed.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, models.ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, models.ErrFetchExhausted):
		return ExitOK
	default:
		return ExitRuntimeError
	}
}

func Execute() int {
	if err := logger.Init(logger.Options{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	code := ExitCode(err)
	if err != nil {
		log := logger.Named("cmd")
		if code == ExitOK {
			log.Warnw("run skipped", "error", err)
		} else {
			log.Errorw("run failed", "exit_code", code, "error", err)
		}
	}
	return code
}
