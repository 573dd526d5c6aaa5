package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an operation referencing an unknown dish, cart
	// line, or order record.
	ErrNotFound = errors.New("not found")

	// ErrEmptyCart rejects submission of a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError reports malformed create/update input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
