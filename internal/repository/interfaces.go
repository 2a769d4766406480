package repository

import (
	"context"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
)

// SeenStateRepository persists the Seen-State between monitor runs.
type SeenStateRepository interface {
	// Load never fails: a missing or unreadable record yields the empty state.
	Load(ctx context.Context) *models.SeenState
	// Save replaces the persisted state atomically.
	Save(ctx context.Context, state *models.SeenState) error
}
