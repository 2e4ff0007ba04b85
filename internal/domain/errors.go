package domain

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned when no baseline model could be loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// InvalidInputError marks a malformed reading. It only ever fails the
// current cycle.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// IsInvalidInput reports whether err is (or wraps) an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// TransportError wraps a failed delivery to one egress sink.
type TransportError struct {
	Sink string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Sink, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
