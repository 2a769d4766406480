// Package metrics exports the totals of a monitor run to a Prometheus
// Pushgateway. Runs are short lived, so nothing is scraped.
package metrics

import (
	"context"
	"fmt"

	"github.com/nguyentranbao-ct/deal-monitor/internal/config"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const namespace = "deal_monitor"

var outcomes = []models.Outcome{
	models.OutcomeNotified,
	models.OutcomeNoNew,
	models.OutcomeNoDeals,
	models.OutcomeFetchFailed,
	models.OutcomeAuthFailed,
	models.OutcomeFailed,
	models.OutcomeDryRun,
}

// Recorder receives the summary of every finished run.
type Recorder interface {
	Record(ctx context.Context, summary *models.RunSummary) error
}

type Pusher struct {
	registry *prometheus.Registry
	listings *prometheus.GaugeVec
	outcome  *prometheus.GaugeVec
	duration prometheus.Gauge
	lastRun  prometheus.Gauge
	url      string
	job      string
	log      *zap.SugaredLogger
}

// NewPusher registers the run gauges on a private registry. With an empty
// Pushgateway URL, Record only updates the gauges.
func NewPusher(cfg *config.MetricsConfig) *Pusher {
	p := &Pusher{
		registry: prometheus.NewRegistry(),
		listings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings",
			Help:      "Listings observed by the last run, by kind",
		}, []string{"kind"}),
		outcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_outcome",
			Help:      "1 for the outcome of the last run, 0 otherwise",
		}, []string{"outcome"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		url: cfg.PushgatewayURL,
		job: cfg.Job,
		log: logger.Named("metrics"),
	}
	p.registry.MustRegister(p.listings, p.outcome, p.duration, p.lastRun)
	return p
}

func (p *Pusher) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Pusher) Record(ctx context.Context, s *models.RunSummary) error {
	if s == nil {
		return nil
	}
	for kind, v := range map[string]int{
		"total":          s.Total,
		"qualified":      s.Qualified,
		"exclusive":      s.Exclusive,
		"unreconcilable": s.Unreconcilable,
		"previous_seen":  s.PreviousSeen,
		"new":            s.New,
		"new_exclusive":  s.NewExclusive,
		"disappeared":    s.Disappeared,
	} {
		p.listings.WithLabelValues(kind).Set(float64(v))
	}
	for _, o := range outcomes {
		v := 0.0
		if o == s.Outcome {
			v = 1
		}
		p.outcome.WithLabelValues(string(o)).Set(v)
	}
	p.duration.Set(s.Duration().Seconds())
	if !s.FinishedAt.IsZero() {
		p.lastRun.Set(float64(s.FinishedAt.Unix()))
	}

	if p.url == "" {
		return nil
	}
	err := push.New(p.url, p.job).
		Gatherer(p.registry).
		PushContext(ctx)
	if err != nil {
		p.log.Warnw("failed to push run metrics", "url", p.url, "error", err)
		return fmt.Errorf("push metrics: %w", err)
	}
	p.log.Debugw("run metrics pushed", "url", p.url, "job", p.job)
	return nil
}
