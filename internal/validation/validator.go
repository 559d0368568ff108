// Package validation collects field errors in the order checks run.
package validation

import (
	"unicode"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

// Presence message for blank required fields.
const MsgBlank = "can't be blank"

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator defines validation methods
type Validator struct {
	Errors []FieldError
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make([]FieldError, 0)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError adds an error to the validator
func (v *Validator) AddError(field, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message})
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Has reports whether field already has an error.
func (v *Validator) Has(field string) bool {
	for _, e := range v.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Present records MsgBlank when value is empty.
func (v *Validator) Present(field string, value interface{}) {
	v.Rules(field, value, ozzo.Required.Error(MsgBlank))
}

// Rules applies ozzo rules to value and records the first failure.
func (v *Validator) Rules(field string, value interface{}, rules ...ozzo.Rule) {
	if err := ozzo.Validate(value, rules...); err != nil {
		v.AddError(field, err.Error())
	}
}

// Password validates password strength
func (v *Validator) Password(field, password string) {
	v.Check(len(password) >= 8, field, "must be at least 8 characters long")

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	v.Check(hasUpper, field, "must contain at least one uppercase letter")
	v.Check(hasLower, field, "must contain at least one lowercase letter")
	v.Check(hasNumber, field, "must contain at least one number")
}
