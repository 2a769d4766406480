package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/bfmr"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/metrics"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repo/notifier"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repository"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RunOptions are per-invocation switches set on the command line.
type RunOptions struct {
	// DryRun fetches, reconciles and composes but neither dispatches nor persists.
	DryRun bool
	// PrintNew logs every reportable listing.
	PrintNew bool
}

type MonitorUsecase interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

type monitorUsecase struct {
	fetcher    bfmr.Client
	states     repository.SeenStateRepository
	composer   Composer
	dispatcher notifier.Dispatcher
	recorder   metrics.Recorder
	qualify    models.Predicate
	policy     models.SeenPolicy
	opts       RunOptions
	now        func() time.Time
	newRunID   func() string
	log        *zap.SugaredLogger
}

func NewMonitorUsecase(
	cfg *config.Config,
	opts RunOptions,
	fetcher bfmr.Client,
	states repository.SeenStateRepository,
	composer Composer,
	dispatcher notifier.Dispatcher,
	recorder metrics.Recorder,
) MonitorUsecase {
	return &monitorUsecase{
		fetcher:    fetcher,
		states:     states,
		composer:   composer,
		dispatcher: dispatcher,
		recorder:   recorder,
		qualify:    models.RetailerMatch(cfg.Monitor.RetailerMatch...),
		policy:     cfg.Monitor.Policy(),
		opts:       opts,
		now:        time.Now,
		newRunID:   uuid.NewString,
		log:        logger.Named("monitor"),
	}
}

// Run executes one monitoring pass. A nil error means the run completed,
// which includes runs with nothing to report. The returned summary is never
// nil and reflects how far the run got.
//
// Fetch and authentication failures end the run before the Seen-State is
// touched. Once reconciliation succeeds the new state is committed whatever
// the notification outcome, unless the run is a dry run.
func (uc *monitorUsecase) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uc.newRunID(),
		StartedAt: uc.now().UTC(),
		Stage:     models.StageStart,
	}
	log := uc.log.With("run_id", summary.RunID)
	log.Infow("run started", "policy", uc.policy, "dry_run", uc.opts.DryRun)

	err := uc.run(ctx, log, summary)
	if err != nil {
		summary.Stage = models.StageFailed
		if summary.Outcome == "" {
			summary.Outcome = models.OutcomeFailed
		}
	}
	summary.FinishedAt = uc.now().UTC()
	uc.report(ctx, log, summary, err)
	return summary, err
}

func (uc *monitorUsecase) run(ctx context.Context, log *zap.SugaredLogger, summary *models.RunSummary) error {
	payload, err := uc.fetcher.FetchDeals(ctx)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAuthentication):
			summary.Outcome = models.OutcomeAuthFailed
		case errors.Is(err, models.ErrFetchExhausted):
			summary.Outcome = models.OutcomeFetchFailed
		}
		return fmt.Errorf("fetch: %w", err)
	}
	summary.Stage = models.StageFetched

	listings, err := bfmr.Normalize(payload)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	summary.Stage = models.StageNormalized
	summary.Total = len(listings)

	qualified := models.Filter(listings, uc.qualify)
	summary.Qualified = len(qualified)
	summary.Exclusive = models.CountExclusive(qualified)

	previous := uc.states.Load(ctx)
	summary.PreviousSeen = previous.Len()

	checkedAt := uc.now()
	rec := Reconcile(qualified, previous, uc.policy, checkedAt)
	summary.Stage = models.StageReconciled
	summary.Unreconcilable = rec.Unreconcilable
	summary.New = len(rec.Reportable)
	summary.NewExclusive = models.CountExclusive(rec.Reportable)
	summary.Disappeared = len(rec.DisappearedIDs)

	if rec.Unreconcilable > 0 {
		log.Warnw("qualified listings without id excluded from reconciliation", "count", rec.Unreconcilable)
	}
	if len(rec.DisappearedIDs) > 0 {
		log.Infow("listings no longer available", "ids", rec.DisappearedIDs)
	}
	if uc.opts.PrintNew {
		for _, l := range rec.Reportable {
			log.Infow("reportable listing", "deal_id", l.ID, "title", l.Title,
				"retailers", l.Retailers, "payout", l.PayoutPrice, "exclusive", l.IsExclusive, "url", l.URL)
		}
	}

	notifyErr := uc.notify(ctx, log, summary, rec.Reportable, checkedAt)

	if uc.opts.DryRun {
		log.Infow("dry run, state not committed", "next_state_size", rec.NextState.Len())
		summary.Stage = models.StageEnd
		return notifyErr
	}

	if err := uc.states.Save(ctx, rec.NextState); err != nil {
		return multierr.Append(notifyErr, fmt.Errorf("commit state: %w", err))
	}
	summary.StateCommitted = true
	summary.Stage = models.StageStateCommitted

	if notifyErr != nil {
		return notifyErr
	}
	summary.Stage = models.StageEnd
	return nil
}

// notify composes and dispatches the digest. It sets the NOTIFIED or SKIPPED
// stage and the outcome; the returned error wraps models.ErrNotification.
func (uc *monitorUsecase) notify(
	ctx context.Context,
	log *zap.SugaredLogger,
	summary *models.RunSummary,
	reportable []models.Listing,
	checkedAt time.Time,
) error {
	if len(reportable) == 0 {
		summary.Stage = models.StageSkipped
		summary.Outcome = models.OutcomeNoNew
		if summary.Qualified == 0 {
			summary.Outcome = models.OutcomeNoDeals
		}
		log.Infow("nothing to report", "qualified", summary.Qualified)
		return nil
	}

	digest, err := uc.composer.Compose(reportable, checkedAt)
	if err != nil {
		summary.Stage = models.StageSkipped
		summary.Outcome = models.OutcomeFailed
		return fmt.Errorf("%w: compose: %w", models.ErrNotification, err)
	}
	digest.RunID = summary.RunID

	if uc.opts.DryRun {
		summary.Stage = models.StageSkipped
		summary.Outcome = models.OutcomeDryRun
		log.Infow("dry run, digest not dispatched", "subject", digest.Subject, "body", digest.Body)
		return nil
	}

	if err := uc.dispatcher.Dispatch(ctx, digest); err != nil {
		summary.Stage = models.StageSkipped
		summary.Outcome = models.OutcomeFailed
		log.Errorw("failed to dispatch digest", "transport", uc.dispatcher.Name(), "error", err)
		if !errors.Is(err, models.ErrNotification) {
			err = fmt.Errorf("%w: %w", models.ErrNotification, err)
		}
		return err
	}
	summary.Stage = models.StageNotified
	summary.Outcome = models.OutcomeNotified
	summary.Notified = true
	log.Infow("digest dispatched", "transport", uc.dispatcher.Name(), "subject", digest.Subject)
	return nil
}

func (uc *monitorUsecase) report(ctx context.Context, log *zap.SugaredLogger, s *models.RunSummary, runErr error) {
	fields := []any{
		"stage", s.Stage,
		"outcome", s.Outcome,
		"total", s.Total,
		"qualified", s.Qualified,
		"exclusive", s.Exclusive,
		"unreconcilable", s.Unreconcilable,
		"previous_seen", s.PreviousSeen,
		"new", s.New,
		"new_exclusive", s.NewExclusive,
		"disappeared", s.Disappeared,
		"notified", s.Notified,
		"state_committed", s.StateCommitted,
		"duration", s.Duration(),
	}
	if runErr != nil {
		log.Errorw("run finished", append(fields, "error", runErr)...)
	} else {
		log.Infow("run finished", fields...)
	}

	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.Record(ctx, s); err != nil {
		log.Warnw("failed to record run metrics", "error", err)
	}
}
