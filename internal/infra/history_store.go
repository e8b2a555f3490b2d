package infra

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/summerlab/appagent/internal/domain"
)

// SQLiteHistoryStore persists launch audit entries in a local SQLite file.
// The in-memory history remains authoritative for the history operation;
// this store survives agent restarts for offline inspection.
type SQLiteHistoryStore struct {
	db *sql.DB
}

var _ domain.HistoryStore = (*SQLiteHistoryStore)(nil)

const historySchema = `
CREATE TABLE IF NOT EXISTS launch_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT    NOT NULL,
	app_name      TEXT    NOT NULL,
	app_path      TEXT    NOT NULL,
	result        TEXT    NOT NULL,
	process_id    INTEGER NOT NULL DEFAULT 0,
	duration      REAL    NOT NULL DEFAULT 0,
	launch_method TEXT    NOT NULL DEFAULT '',
	platform      TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_launch_history_timestamp
	ON launch_history (timestamp);
`

// NewSQLiteHistoryStore opens (creating if needed) the history database at
// path and ensures the schema exists.
func NewSQLiteHistoryStore(path string) (*SQLiteHistoryStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// A single writer keeps sqlite happy without busy-timeout tuning.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &SQLiteHistoryStore{db: db}, nil
}

func (s *SQLiteHistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO launch_history
			(timestamp, app_name, app_path, result, process_id, duration, launch_method, platform)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.AppName,
		entry.AppPath,
		string(entry.Result),
		entry.ProcessID,
		entry.Duration,
		entry.LaunchMethod,
		entry.Platform,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries ordered oldest first.
func (s *SQLiteHistoryStore) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, app_name, app_path, result, process_id, duration, launch_method, platform
		FROM (
			SELECT * FROM launch_history ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var ts, result string
		if err := rows.Scan(&ts, &e.AppName, &e.AppPath, &result,
			&e.ProcessID, &e.Duration, &e.LaunchMethod, &e.Platform); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Result = domain.LaunchResult(result)
		if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			e.Timestamp = parsed
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteHistoryStore) Close() error {
	return s.db.Close()
}
