package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSchema means a feed's header does not match the expected
	// layout. It aborts the whole feed.
	ErrMalformedSchema = errors.New("malformed schema")

	// ErrUnparseableDate means a date cell is not a valid DD/MM/YYYY date.
	ErrUnparseableDate = errors.New("unparseable date")

	// ErrDateOrder means dates are not strictly ascending.
	ErrDateOrder = errors.New("dates not strictly ascending")
)

// EntityError records an entity dropped from an otherwise successful feed.
type EntityError struct {
	Entity string `json:"entity"`
	Err    error  `json:"-"`
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("entity %q: %v", e.Entity, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSchema, fmt.Sprintf(format, args...))
}
