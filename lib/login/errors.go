package login

import (
	"fmt"

	"github.com/segmentio/wplogin/lib/types"
)

var (
	ErrStaleAttempt        = types.ErrStaleAttempt
	ErrInvalidState        = types.ErrInvalidState
	ErrInvalidArgument     = types.ErrInvalidArgument
	ErrUnexpectedChallenge = types.ErrUnexpectedChallenge
	ErrCertificateRejected = types.ErrCertificateRejected
)

// InvalidStateError is returned when a resume call does not match what the
// current attempt is waiting for. Current tells the caller what it should
// prompt for instead.
type InvalidStateError struct {
	Op      string
	Current State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: attempt is %s", e.Op, e.Current)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// describe returns the user-facing cause for a failed attempt.
func describe(err error) string {
	if err == nil {
		return "unknown error"
	}
	if s := err.Error(); s != "" {
		return s
	}
	return "unknown error"
}
