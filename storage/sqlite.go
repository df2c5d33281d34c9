package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Entity: "database", Err: ErrInvalidInput}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutVideo inserts or replaces a video row.
func (s *SQLiteStore) PutVideo(ctx context.Context, video *VideoRow) error {
	if video == nil || video.ID == "" {
		return &StorageError{Op: "put", Entity: "video", Err: ErrInvalidInput}
	}

	const query = `
		INSERT INTO video_data (id, title, description, date, duration)
		VALUES (:id, :title, :description, :date, :duration)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			date = excluded.date,
			duration = excluded.duration`

	err := retryOnBusy(ctx, func() error {
		_, err := s.db.NamedExecContext(ctx, query, video)
		return err
	})
	if err != nil {
		return &StorageError{Op: "put", Entity: "video", ID: video.ID, Err: err}
	}
	return nil
}

// GetVideo retrieves a video row by id.
func (s *SQLiteStore) GetVideo(ctx context.Context, id string) (*VideoRow, error) {
	var row VideoRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, title, description, date, duration FROM video_data WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "get", Entity: "video", ID: id, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Entity: "video", ID: id, Err: err}
	}
	return &row, nil
}

// ListVideos returns every stored video ordered by date descending, then id.
func (s *SQLiteStore) ListVideos(ctx context.Context) ([]*VideoRow, error) {
	rows := []*VideoRow{}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, title, description, date, duration FROM video_data ORDER BY date DESC, id ASC")
	if err != nil {
		return nil, &StorageError{Op: "list", Entity: "video", Err: err}
	}
	return rows, nil
}

// SetCompletion inserts or replaces a completion flag.
func (s *SQLiteStore) SetCompletion(ctx context.Context, id string, completed bool) error {
	if id == "" {
		return &StorageError{Op: "put", Entity: "completion", Err: ErrInvalidInput}
	}

	const query = `
		INSERT INTO video_completion (id, completed) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET completed = excluded.completed`

	if err := s.execWithRetry(ctx, query, id, completed); err != nil {
		return &StorageError{Op: "put", Entity: "completion", ID: id, Err: err}
	}
	return nil
}

// GetCompletion retrieves one completion flag.
func (s *SQLiteStore) GetCompletion(ctx context.Context, id string) (*CompletionRow, error) {
	var row CompletionRow
	err := s.db.GetContext(ctx, &row, "SELECT id, completed FROM video_completion WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "get", Entity: "completion", ID: id, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Entity: "completion", ID: id, Err: err}
	}
	return &row, nil
}

// ListCompletions returns every stored completion flag.
func (s *SQLiteStore) ListCompletions(ctx context.Context) ([]*CompletionRow, error) {
	rows := []*CompletionRow{}
	if err := s.db.SelectContext(ctx, &rows, "SELECT id, completed FROM video_completion ORDER BY id"); err != nil {
		return nil, &StorageError{Op: "list", Entity: "completion", Err: err}
	}
	return rows, nil
}

// APIKey returns the stored API key.
func (s *SQLiteStore) APIKey(ctx context.Context) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", settingAPIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &StorageError{Op: "get", Entity: "setting", ID: settingAPIKey, Err: ErrNotFound}
	}
	if err != nil {
		return "", &StorageError{Op: "get", Entity: "setting", ID: settingAPIKey, Err: err}
	}
	return value, nil
}

// SetAPIKey stores the API key, replacing any previous value.
func (s *SQLiteStore) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &StorageError{Op: "put", Entity: "setting", ID: settingAPIKey, Err: ErrInvalidInput}
	}

	const query = `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`

	if err := s.execWithRetry(ctx, query, settingAPIKey, key); err != nil {
		return &StorageError{Op: "put", Entity: "setting", ID: settingAPIKey, Err: err}
	}
	return nil
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
