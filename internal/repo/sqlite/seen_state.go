// Package sqlite keeps the Seen-State in an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repository"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_deals (
	state_key  TEXT NOT NULL,
	deal_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	first_seen TEXT NOT NULL,
	PRIMARY KEY (state_key, deal_id)
);
CREATE TABLE IF NOT EXISTS seen_state (
	state_key  TEXT PRIMARY KEY,
	updated_at TEXT NOT NULL
);`

var _ repository.SeenStateRepository = (*SeenStateRepo)(nil)

type SeenStateRepo struct {
	db  *sql.DB
	key string
	log *zap.SugaredLogger
}

// Open opens (creating if needed) the database at path with WAL and a busy
// timeout, and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return db, nil
}

func NewSeenStateRepository(db *sql.DB, key string) *SeenStateRepo {
	return &SeenStateRepo{
		db:  db,
		key: key,
		log: logger.Named("sqlite"),
	}
}

func (r *SeenStateRepo) Load(ctx context.Context) *models.SeenState {
	state, err := r.load(ctx)
	if err != nil {
		r.log.Warnw("seen state unreadable, treating as first run", "key", r.key, "error", err)
		return models.NewSeenState()
	}
	return state
}

func (r *SeenStateRepo) load(ctx context.Context) (*models.SeenState, error) {
	state := models.NewSeenState()

	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT updated_at FROM seen_state WHERE state_key = ?`, r.key).Scan(&updatedAt)
	switch {
	case err == sql.ErrNoRows:
		return state, nil
	case err != nil:
		return nil, fmt.Errorf("query state: %w", err)
	}
	if state.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT deal_id, title, first_seen FROM seen_deals WHERE state_key = ?`, r.key)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, title, firstSeen string
		if err := rows.Scan(&id, &title, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		ts, err := parseTime(firstSeen)
		if err != nil {
			return nil, err
		}
		state.Entries[id] = models.SeenEntry{FirstSeen: ts, Title: title}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deals: %w", err)
	}
	return state, nil
}

// Save replaces the stored state in a single transaction.
func (r *SeenStateRepo) Save(ctx context.Context, state *models.SeenState) error {
	if state == nil {
		state = models.NewSeenState()
	}
	if err := r.save(ctx, state); err != nil {
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	return nil
}

func (r *SeenStateRepo) save(ctx context.Context, state *models.SeenState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_deals WHERE state_key = ?`, r.key); err != nil {
		return fmt.Errorf("clear deals: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO seen_deals (state_key, deal_id, title, first_seen) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range state.IDs() {
		e := state.Entries[id]
		if _, err := stmt.ExecContext(ctx, r.key, id, e.Title, formatTime(e.FirstSeen)); err != nil {
			return fmt.Errorf("insert deal %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO seen_state (state_key, updated_at) VALUES (?, ?)
		 ON CONFLICT(state_key) DO UPDATE SET updated_at = excluded.updated_at`,
		r.key, formatTime(state.UpdatedAt)); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
