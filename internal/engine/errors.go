package engine

import (
	"database/sql"
	"errors"
	"fmt"
)

// Error taxonomy surfaced by every engine operation. Callers classify with
// errors.Is; the presentation layer maps each class to a status code.
var (
	// ErrUnauthorized means the caller's role or company does not match the
	// operation's required scope. No mutation is attempted.
	ErrUnauthorized = errors.New("not permitted")

	// ErrNotFound means the referenced request, bid or location does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the request's current status forbids the operation.
	ErrInvalidState = errors.New("not allowed in the request's current state")

	// ErrInvalidInput means malformed or semantically invalid field values,
	// rejected before any transaction begins.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient means the persistence gateway failed to commit. The
	// transaction was rolled back in full; the caller may retry.
	ErrTransient = errors.New("transient storage failure")
)

// classify maps raw storage errors onto the engine taxonomy. Errors already
// belonging to the taxonomy pass through unchanged so context added inside a
// transaction survives.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrTransient):
		return err
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
}
