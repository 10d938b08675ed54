// Package resilience provides the error taxonomy and retry helpers shared
// by the ingestion pipeline and its external collaborators.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Class partitions failures into the small set of client-facing categories
// the API reports. Anything that does not carry a Class surfaces as an
// internal error.
type Class string

const (
	// ClassUnauthenticated covers missing sessions and malformed owner ids.
	ClassUnauthenticated Class = "unauthenticated"
	// ClassUnavailable covers missing deployment configuration (no store,
	// no provider credentials), distinct from auth failures.
	ClassUnavailable Class = "service_unavailable"
	// ClassBadRequest covers malformed caller input.
	ClassBadRequest Class = "bad_request"
	// ClassUpstreamGateway covers failures of the remote scrape provider
	// itself (auth rejection or 5xx); retrying the same request may succeed.
	ClassUpstreamGateway Class = "upstream_gateway"
)

// maxDiagnosticLen caps upstream error text carried in diagnostics. Raw
// provider bodies are never trusted as structured data.
const maxDiagnosticLen = 500

// ClassedError attaches a taxonomy class to an underlying error.
type ClassedError struct {
	Class Class
	Err   error
}

func (e *ClassedError) Error() string {
	return string(e.Class) + ": " + e.Err.Error()
}

func (e *ClassedError) Unwrap() error {
	return e.Err
}

// Classify wraps err with the given class, truncating the message so
// upstream bodies cannot balloon diagnostics.
func Classify(class Class, err error) error {
	if err == nil {
		return nil
	}
	return &ClassedError{Class: class, Err: errors.New(Truncate(err.Error()))}
}

// ClassOf returns the class of err, or "" if no taxonomy entry applies.
func ClassOf(err error) Class {
	var ce *ClassedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ""
}

// Truncate caps diagnostic text at the taxonomy limit.
func Truncate(s string) string {
	if len(s) <= maxDiagnosticLen {
		return s
	}
	return s[:maxDiagnosticLen]
}

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout) with the HTTP status that produced it, when known.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error chain contains a TransientError, or
// matches common transient network failure patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors already flattened by HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
