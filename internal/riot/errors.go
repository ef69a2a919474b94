package riot

import (
	"errors"
	"fmt"
)

var (
	// The game client is not running (or has never run) on this machine.
	ErrLockfileNotFound = errors.New("client lockfile not found")
	// The lockfile exists but does not have the name:pid:port:password:protocol shape.
	ErrMalformedLockfile = errors.New("malformed client lockfile")
)

// StatusError is a non-2xx reply from any remote endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
