package services

import (
	"errors"
	"fmt"

	"pitchfeed/internal/db"
	"pitchfeed/internal/oracle"
)

// Error kinds surfaced to callers. Every service error wraps exactly one.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidState   = errors.New("invalid state")
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrUnavailable    = errors.New("unavailable")
)

// translate maps store and oracle errors onto the service taxonomy. Errors
// already carrying a service kind pass through untouched.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case isKind(err):
		return err
	case errors.Is(err, db.ErrNotFound), errors.Is(err, oracle.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, db.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrDuplicateEvent, err)
	case errors.Is(err, oracle.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func isKind(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrInvalidInput, ErrInvalidState, ErrDuplicateEvent, ErrUnavailable} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidState(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
