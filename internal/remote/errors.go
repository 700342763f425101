package remote

import (
	"context"
	"errors"
	"net"

	"github.com/rotisserie/eris"
)

var (
	// ErrRemoteUnavailable covers transport failures, timeouts, non-success
	// statuses and bodies that cannot be read or parsed.
	ErrRemoteUnavailable = eris.New("remote scoring service unavailable")
	// ErrRemoteInvalidResponse means the body parsed but carried no global score.
	ErrRemoteInvalidResponse = eris.New("remote scoring service returned an invalid response")
)

// Failure is returned by the HTTP client for every failed call. It matches
// its Kind with errors.Is and keeps the underlying cause reachable.
type Failure struct {
	Kind       error
	StatusCode int
	Err        error
}

func (e *Failure) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Failure) Unwrap() error {
	return e.Err
}

func (e *Failure) Is(target error) bool {
	return target == e.Kind
}

func unavailable(err error, status int) *Failure {
	return &Failure{Kind: ErrRemoteUnavailable, StatusCode: status, Err: err}
}

func invalid(err error) *Failure {
	return &Failure{Kind: ErrRemoteInvalidResponse, Err: err}
}

// IsTimeout reports whether err came from a deadline, either the context's
// or the HTTP client's own timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
