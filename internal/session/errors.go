package session

import (
	"errors"
	"fmt"
)

// AuthError is a rejected login or registration attempt: bad credentials, a
// response with no recognizable token field, or a role mismatch. It is shown
// to the user on the auth form and never disturbs an existing session.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

func authErrorf(format string, args ...interface{}) *AuthError {
	return &AuthError{Reason: fmt.Sprintf(format, args...)}
}

// ErrOperationInFlight rejects a second auth submission while one is already
// running for the same browser session. Double-submit is a correctness bug
// to guard against, not something to queue.
var ErrOperationInFlight = errors.New("another authentication attempt is already in flight")
