package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"

	apihttp "ctctracker/http"
)

// Sentinel errors matched by APIError through errors.Is.
var (
	// ErrInvalidCredential indicates the API key was missing, invalid or expired.
	ErrInvalidCredential = errors.New("youtube: invalid API credential")
	// ErrQuotaExceeded indicates the daily quota or a rate limit was hit.
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
	// ErrNotFound indicates the playlist or video does not exist.
	ErrNotFound = errors.New("youtube: not found")
)

// TransportError wraps network and HTTP-level failures (including an open
// circuit) that never produced a well-formed API error response.
type TransportError struct {
	// Op is the API call that failed, e.g. "playlistItems.list".
	Op string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the transport error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("youtube: %s: transport: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a well-formed error response from the YouTube Data API.
//
//	var apiErr *youtube.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s failed with %d (%s)\n", apiErr.Op, apiErr.Code, apiErr.Reason)
//	}
type APIError struct {
	// Op is the API call that failed.
	Op string
	// Code is the HTTP status code.
	Code int
	// Reason is the first error reason reported by the API, e.g. "quotaExceeded".
	Reason string
	// Message is the human-readable message from the API.
	Message string
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube: %s: %d %s: %s", e.Op, e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube: %s: %d: %s", e.Op, e.Code, e.Message)
}

// Is maps API error reasons onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidCredential:
		switch e.Reason {
		case "keyInvalid", "keyExpired", "keyMissing":
			return true
		}
		return e.Code == 401 || strings.Contains(e.Message, "API key")
	case ErrQuotaExceeded:
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
		return e.Code == 429
	case ErrNotFound:
		switch e.Reason {
		case "playlistNotFound", "videoNotFound", "notFound":
			return true
		}
		return e.Code == 404
	}
	return false
}

// Temporary reports whether the server side failed and the call may succeed later.
func (e *APIError) Temporary() bool {
	return e.Code >= 500
}

// classifyError converts an error from the generated API client into a
// TransportError or APIError.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		apiErr := &APIError{Op: op, Code: gErr.Code, Message: gErr.Message}
		if len(gErr.Errors) > 0 {
			apiErr.Reason = gErr.Errors[0].Reason
			if apiErr.Message == "" {
				apiErr.Message = gErr.Errors[0].Message
			}
		}
		return apiErr
	}
	return &TransportError{Op: op, Err: err}
}

// isRetryable retries transport failures and 5xx responses. Client errors,
// an open circuit and context cancellation are final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, apihttp.ErrCircuitOpen) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
