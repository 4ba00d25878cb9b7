package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned on a 401. The session has already been
	// cleared by the time callers see it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRestricted is returned on a 403, e.g. posts of a private profile.
	// Callers present it as a distinct "restricted" state, not a generic error.
	ErrRestricted = errors.New("restricted")

	// ErrSendRejected is returned when the send endpoint answers 2xx but the
	// application-level status flag is false.
	ErrSendRejected = errors.New("send rejected")
)

// Error is a transport or server failure outside the sentinel cases above.
// Message carries the server-provided detail when the body was parseable.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}
