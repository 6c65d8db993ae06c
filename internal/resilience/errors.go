package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a transport-level failure (connection refused, reset,
// timeout) that is safe to retry. HTTP responses with a bad status are not
// transient: the server answered.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// StatusError is implemented by errors that carry an HTTP response status.
// The server answered, so such errors are never transient whatever their
// body says.
type StatusError interface {
	error
	HTTPStatus() int
}

// transientPatterns catches transport failures that reach us only as text.
var transientPatterns = []string{
	"connection reset by peer",
	"connection refused",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, a network timeout, or a connection reset/refused/abort.
// An error carrying an HTTP status is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se StatusError
	if errors.As(err, &se) {
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

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
