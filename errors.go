package ctctracker

import (
	"ctctracker/internal/retry"
	"ctctracker/storage"
	"ctctracker/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
//	if errors.Is(err, ctctracker.ErrInvalidCredential) {
//		fmt.Println("set a valid key with: ctctracker key set <key>")
//	}
//
//	var apiErr *ctctracker.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s failed: %d %s\n", apiErr.Op, apiErr.Code, apiErr.Reason)
//	}

// Type aliases for convenient error handling.
type (
	// TransportError wraps network failures talking to the API.
	TransportError = youtube.TransportError
	// APIError is a well-formed error response from the API.
	APIError = youtube.APIError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrInvalidCredential indicates the API key is missing, invalid or expired.
	ErrInvalidCredential = youtube.ErrInvalidCredential
	// ErrQuotaExceeded indicates the API quota or a rate limit was hit.
	ErrQuotaExceeded = youtube.ErrQuotaExceeded
	// ErrVideoNotFound indicates the playlist or video does not exist remotely.
	ErrVideoNotFound = youtube.ErrNotFound

	// Storage errors
	// ErrNotFound indicates an entity was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrLockTimeout indicates another process holds the database lock.
	ErrLockTimeout = storage.ErrLockTimeout
)
