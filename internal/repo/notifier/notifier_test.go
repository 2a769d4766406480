package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testDigest() *models.Digest {
	return &models.Digest{
		RunID:     "run-1",
		CheckedAt: time.Date(2026, 10, 18, 9, 5, 0, 0, time.UTC),
		Subject:   "🚨 2 New/Returning Amazon Deals",
		Body:      "Deal ID: 1\nDeal ID: 2\n",
		Listings: []models.Listing{
			{ID: "1", Title: "Echo Dot", Retailers: "Amazon"},
			{ID: "2", Title: "Kindle", Retailers: "Amazon", IsExclusive: true},
		},
	}
}

type fakeDispatcher struct {
	name  string
	err   error
	calls int
}

func (f *fakeDispatcher) Name() string { return f.name }

func (f *fakeDispatcher) Dispatch(context.Context, *models.Digest) error {
	f.calls++
	return f.err
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, Recipients(" a@example.com, ,b@example.com "))
	assert.Empty(t, Recipients(""))
}

func TestMultiSingleIsUnwrapped(t *testing.T) {
	d := &fakeDispatcher{name: "log"}
	assert.Same(t, d, NewMulti(d))
}

func TestMultiAttemptsAll(t *testing.T) {
	boom := errors.New("boom")
	first := &fakeDispatcher{name: "smtp", err: boom}
	second := &fakeDispatcher{name: "kafka"}
	third := &fakeDispatcher{name: "resend", err: models.ErrNotification}

	m := NewMulti(first, second, third)
	assert.Equal(t, "smtp,kafka,resend", m.Name())

	err := m.Dispatch(context.Background(), testDigest())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, models.ErrNotification)
	assert.Contains(t, err.Error(), "smtp: boom")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}

func TestMultiAllSucceed(t *testing.T) {
	m := NewMulti(&fakeDispatcher{name: "a"}, &fakeDispatcher{name: "b"})
	assert.NoError(t, m.Dispatch(context.Background(), testDigest()))
}

func TestMultiEmpty(t *testing.T) {
	err := NewMulti().Dispatch(context.Background(), testDigest())
	assert.ErrorIs(t, err, models.ErrNotification)
}

func TestLogDispatcher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewLog(zap.New(core).Sugar())

	require.NoError(t, d.Dispatch(context.Background(), testDigest()))
	entries := logs.FilterMessage("digest").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, int64(2), fields["listings"])
	assert.Equal(t, "Deal ID: 1\nDeal ID: 2\n", fields["body"])
}

func TestDispatchEmptyDigest(t *testing.T) {
	d := NewLog(zap.NewNop().Sugar())
	assert.ErrorIs(t, d.Dispatch(context.Background(), nil), models.ErrNotification)
	assert.ErrorIs(t, d.Dispatch(context.Background(), &models.Digest{Subject: "x"}), models.ErrNotification)
}
