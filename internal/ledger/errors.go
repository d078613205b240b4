package ledger

import (
	"errors"
	"fmt"
)

// Ledger errors. Callers match them with errors.Is and errors.As.
var (
	// ErrInsufficientCredits reports a debit larger than the current balance.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrNotFound reports a missing user, item or request.
	ErrNotFound = errors.New("not found")
	// ErrExternalService reports an unreachable or failing dependency.
	ErrExternalService = errors.New("external service failure")
	// ErrEmailTaken reports a signup with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
)

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
