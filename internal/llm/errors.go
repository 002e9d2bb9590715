package llm

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// StatusError is a non-2xx response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, body)
}

// TransientError wraps a retryable failure that survived all retry
// attempts, so callers can distinguish it from hard provider errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RateLimitExhaustedError reports that the account key has no request
// budget left according to the provider key status endpoint.
type RateLimitExhaustedError struct {
	Usage float64
	Limit float64
}

func (e *RateLimitExhaustedError) Error() string {
	return fmt.Sprintf("provider rate limit exhausted: usage %.2f of limit %.2f", e.Usage, e.Limit)
}

// IsRateLimited reports whether err represents an HTTP 429 from the
// provider, either directly or wrapped.
func IsRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429
	}
	return strings.Contains(err.Error(), "429")
}

// IsAuthFailure reports whether err is an HTTP 401 or 403.
func IsAuthFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 401 || se.StatusCode == 403
	}
	return false
}

// IsNetwork reports whether err stems from transport-level failure
// rather than a provider response.
func IsNetwork(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var te *TransientError
	if errors.As(err, &te) {
		return IsNetwork(te.Err)
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporarily unavailable")
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429 || se.StatusCode >= 500
	}
	return IsNetwork(err)
}
