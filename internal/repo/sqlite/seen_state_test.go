package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T, key string) (*SeenStateRepo, func(string) *SeenStateRepo) {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSeenStateRepository(db, key), func(k string) *SeenStateRepo {
		return NewSeenStateRepository(db, k)
	}
}

func TestLoadEmpty(t *testing.T) {
	repo, _ := openTestRepo(t, "bfmr")
	assert.Equal(t, models.NewSeenState(), repo.Load(context.Background()))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestRepo(t, "bfmr")

	ts := time.Date(2026, 10, 18, 12, 0, 0, 500, time.UTC)
	state := &models.SeenState{
		Entries: map[string]models.SeenEntry{
			"A": {FirstSeen: ts.Add(-24 * time.Hour), Title: "Echo Dot"},
			"B": {FirstSeen: ts},
		},
		UpdatedAt: ts,
	}
	require.NoError(t, repo.Save(ctx, state))
	assert.Equal(t, state, repo.Load(ctx))

	// a second save replaces rather than merges
	next := &models.SeenState{
		Entries:   map[string]models.SeenEntry{"C": {FirstSeen: ts, Title: "Kindle"}},
		UpdatedAt: ts.Add(time.Minute),
	}
	require.NoError(t, repo.Save(ctx, next))
	assert.Equal(t, next, repo.Load(ctx))
}

func TestKeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo, withKey := openTestRepo(t, "bfmr")
	other := withKey("other")

	state := &models.SeenState{
		Entries:   map[string]models.SeenEntry{"A": {FirstSeen: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}},
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(ctx, state))

	assert.Equal(t, 0, other.Load(ctx).Len())
	assert.Equal(t, 1, repo.Load(ctx).Len())
}

func TestLoadCorruptRowDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestRepo(t, "bfmr")

	_, err := repo.db.ExecContext(ctx, `INSERT INTO seen_state (state_key, updated_at) VALUES ('bfmr', 'garbage')`)
	require.NoError(t, err)

	assert.Equal(t, models.NewSeenState(), repo.Load(ctx))
}

func TestSaveFailsOnClosedDB(t *testing.T) {
	repo, _ := openTestRepo(t, "bfmr")
	require.NoError(t, repo.db.Close())

	err := repo.Save(context.Background(), models.NewSeenState())
	assert.ErrorIs(t, err, models.ErrPersistence)
}
