package service

import (
	"fmt"
	"strings"
)

// FieldErrors maps a request field to its messages. Values are []string for
// plain fields and []FieldErrors for list fields such as order items.
type FieldErrors map[string]interface{}

// Add appends msg to the messages of field.
func (f FieldErrors) Add(field, msg string) {
	msgs, _ := f[field].([]string)
	f[field] = append(msgs, msg)
}

// ValidationError carries field-level messages for a rejected request.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

func fieldError(field, msg string) *ValidationError {
	fields := FieldErrors{}
	fields.Add(field, msg)
	return &ValidationError{Fields: fields}
}

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."

	msgProductNameTaken = "product with this name already exists."
)

func msgMaxLength(n int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", n)
}
