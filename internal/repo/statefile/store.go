// Package statefile keeps the Seen-State in a local JSON file.
//
// Writes go to a temp file in the same directory which is then renamed over
// the target, so readers see either the old or the new record, never a torn one.
package statefile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repository"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"go.uber.org/zap"
)

var _ repository.SeenStateRepository = (*Store)(nil)

// fileRecord is the on-disk shape. deal_ids is written for older readers
// that only know the last-run id list.
type fileRecord struct {
	DealIDs   []string                    `json:"deal_ids"`
	Deals     map[string]models.SeenEntry `json:"deals,omitempty"`
	Timestamp string                      `json:"timestamp"`
}

// Timestamps from older files may lack a zone; those are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type Store struct {
	path string
	log  *zap.SugaredLogger
}

func New(path string) *Store {
	return &Store{
		path: path,
		log:  logger.Named("statefile"),
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(_ context.Context) *models.SeenState {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Infow("no state file, treating as first run", "path", s.path)
		return models.NewSeenState()
	}
	if err != nil {
		s.log.Warnw("state file unreadable, treating as first run", "path", s.path, "error", err)
		return models.NewSeenState()
	}

	state, err := decode(data)
	if err != nil {
		s.log.Warnw("state file corrupt, treating as first run", "path", s.path, "error", err)
		return models.NewSeenState()
	}
	s.log.Debugw("state loaded", "path", s.path, "entries", state.Len())
	return state
}

func decode(data []byte) (*models.SeenState, error) {
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	state := models.NewSeenState()
	if rec.Timestamp != "" {
		ts, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			return nil, err
		}
		state.UpdatedAt = ts
	}

	for id, e := range rec.Deals {
		if id == "" {
			continue
		}
		e.FirstSeen = e.FirstSeen.UTC()
		state.Entries[id] = e
	}
	// ids only present in the legacy list were first seen no later than the file timestamp
	for _, id := range rec.DealIDs {
		if id == "" || state.Has(id) {
			continue
		}
		state.Entries[id] = models.SeenEntry{FirstSeen: state.UpdatedAt}
	}
	return state, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func encode(state *models.SeenState) ([]byte, error) {
	rec := fileRecord{
		DealIDs:   state.IDs(),
		Deals:     make(map[string]models.SeenEntry, state.Len()),
		Timestamp: state.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for id, e := range state.Entries {
		e.FirstSeen = e.FirstSeen.UTC()
		rec.Deals[id] = e
	}
	sort.Strings(rec.DealIDs)
	return json.MarshalIndent(rec, "", "  ")
}

func (s *Store) Save(_ context.Context, state *models.SeenState) error {
	if state == nil {
		state = models.NewSeenState()
	}
	data, err := encode(state)
	if err != nil {
		return fmt.Errorf("%w: encode state: %w", models.ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", models.ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", models.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write temp: %w", models.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync temp: %w", models.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close temp: %w", models.ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename: %w", models.ErrPersistence, err)
	}

	s.log.Debugw("state saved", "path", s.path, "entries", state.Len())
	return nil
}
