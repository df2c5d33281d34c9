package http

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned when requests to a host are failing fast.
var ErrCircuitOpen = errors.New("http: circuit breaker is open")

// StatusError records a throttled or failed response for the circuit breaker.
type StatusError struct {
	// Host is the request host
	Host string
	// StatusCode is the HTTP status code
	StatusCode int
	// RetryAfter is the server-provided wait, if any
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("http: %s returned status %d, retry after %v", e.Host, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("http: %s returned status %d", e.Host, e.StatusCode)
}

// Throttled reports whether the status asks the client to slow down.
func (e *StatusError) Throttled() bool {
	return e.StatusCode == 429 || e.StatusCode == 503
}
