package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("dial tcp: lookup failed"))
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("reset"))
	wrapped := fmt.Errorf("places: text search: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_ErisWrappedMessage(t *testing.T) {
	err := eris.Wrap(errors.New("read tcp 10.0.0.1: i/o timeout"), "google: send request")
	if !IsTransient(err) {
		t.Error("expected i/o timeout text to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	err := errors.New("google: unexpected status 403")
	if IsTransient(err) {
		t.Error("status error should not be transient")
	}
}

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d: i/o timeout", e.code) }
func (e *statusErr) HTTPStatus() int { return e.code }

func TestIsTransient_StatusErrorNeverTransient(t *testing.T) {
	err := eris.Wrap(&statusErr{code: 502}, "places: text search")
	if IsTransient(err) {
		t.Error("error carrying an HTTP status should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_ConnectionRefused(t *testing.T) {
	err := fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
	if !IsTransient(err) {
		t.Error("ECONNREFUSED should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewTransientError(inner)
	if !errors.Is(err, inner) {
		t.Error("expected TransientError to unwrap to inner error")
	}
	if err.Error() != "boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
