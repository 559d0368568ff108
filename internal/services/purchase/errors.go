package purchase

import (
	"fmt"
	"strings"

	"spotus/internal/validation"
)

// FieldError is one user-visible validation failure.
type FieldError = validation.FieldError

// ValidationError lists invalid checkout fields in the order they were
// checked. Nothing was persisted or charged.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// GatewayError means the card gateway refused the charge. Message is the
// gateway's text. Nothing was persisted.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// InconsistentStateError means the purchase committed but its donations
// could not be linked to it.
type InconsistentStateError struct {
	PurchaseID uint
	Err        error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("purchase %d committed but donation linking failed: %v", e.PurchaseID, e.Err)
}

func (e *InconsistentStateError) Unwrap() error {
	return e.Err
}
