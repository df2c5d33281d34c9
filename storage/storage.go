// Package storage persists the video catalog, completion flags and settings.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrLockTimeout indicates a timeout acquiring the process lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("put", "get", "list", "lock").
	Op string
	// Entity is the entity type ("video", "completion", "setting").
	Entity string
	// ID is the entity ID if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is the record store used by the synchronizer and the CLI.
// Implementations must be safe for concurrent use.
type Store interface {
	VideoStore
	CompletionStore
	SettingsStore

	// Close releases any resources held by the store.
	Close() error
}

// VideoStore handles cached video metadata. Rows are never deleted.
type VideoStore interface {
	// PutVideo inserts or replaces a video row.
	PutVideo(ctx context.Context, video *VideoRow) error
	// GetVideo retrieves a video row by id.
	GetVideo(ctx context.Context, id string) (*VideoRow, error)
	// ListVideos returns every stored video, newest first (ties by id).
	ListVideos(ctx context.Context) ([]*VideoRow, error)
}

// CompletionStore handles per-video completion flags.
type CompletionStore interface {
	// SetCompletion inserts or replaces a completion flag.
	SetCompletion(ctx context.Context, id string, completed bool) error
	// GetCompletion retrieves one flag, ErrNotFound if the id is unknown.
	GetCompletion(ctx context.Context, id string) (*CompletionRow, error)
	// ListCompletions returns every stored flag.
	ListCompletions(ctx context.Context) ([]*CompletionRow, error)
}

// SettingsStore handles scalar settings.
type SettingsStore interface {
	// APIKey returns the stored API key, ErrNotFound if none is set.
	APIKey(ctx context.Context) (string, error)
	// SetAPIKey stores the API key.
	SetAPIKey(ctx context.Context, key string) error
}
