// Package notifier delivers composed digests through the configured transports.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"go.uber.org/multierr"
)

// Dispatcher delivers a digest through one transport. Failures wrap
// models.ErrNotification and are never retried.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, digest *models.Digest) error
}

var errEmptyDigest = errors.New("empty digest")

func checkDigest(digest *models.Digest) error {
	if digest == nil || len(digest.Listings) == 0 {
		return fmt.Errorf("%w: %w", models.ErrNotification, errEmptyDigest)
	}
	return nil
}

// Recipients splits a comma separated address list.
func Recipients(list string) []string {
	var out []string
	for _, addr := range strings.Split(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

type multi struct {
	dispatchers []Dispatcher
}

// NewMulti fans a digest out to every dispatcher. All of them are attempted
// and their failures are combined.
func NewMulti(dispatchers ...Dispatcher) Dispatcher {
	if len(dispatchers) == 1 {
		return dispatchers[0]
	}
	return &multi{dispatchers: dispatchers}
}

func (m *multi) Name() string {
	names := make([]string, len(m.dispatchers))
	for i, d := range m.dispatchers {
		names[i] = d.Name()
	}
	return strings.Join(names, ",")
}

func (m *multi) Dispatch(ctx context.Context, digest *models.Digest) error {
	if len(m.dispatchers) == 0 {
		return fmt.Errorf("%w: no transport configured", models.ErrNotification)
	}
	var errs error
	for _, d := range m.dispatchers {
		if err := d.Dispatch(ctx, digest); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	return errs
}
