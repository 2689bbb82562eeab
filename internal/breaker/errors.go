package breaker

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when a call is rejected because the named
// breaker is open. RetryAfter is an approximate number of seconds the
// caller should wait before trying again.
type ErrCircuitOpen struct {
	Name       string
	RetryAfter float64
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker %q is open, retry after %.0fs", e.Name, e.RetryAfter)
}

// IsCircuitOpen reports whether err is (or wraps) an ErrCircuitOpen, and
// returns it for access to Name/RetryAfter.
func IsCircuitOpen(err error) (*ErrCircuitOpen, bool) {
	var co *ErrCircuitOpen
	ok := errors.As(err, &co)
	return co, ok
}
