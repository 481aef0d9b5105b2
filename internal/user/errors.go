package user

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a zero-or-one lookup matches nothing.
	ErrNotFound = errors.New("user not found")
	// ErrUnknownField is returned for filters, projections or populate paths
	// naming a field the user document does not have.
	ErrUnknownField = errors.New("unknown user field")
)

// FieldError describes one violated constraint.
type FieldError struct {
	Field  string `json:"field"`
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string { return e.Field + " " + e.Reason }

// ValidationError carries every field constraint a document violated.
// It is returned before any write happens.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Error())
	}
	return fmt.Sprintf("user validation failed: %s", strings.Join(parts, "; "))
}

// Fields returns the names of the violated fields in order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		out = append(out, fe.Field)
	}
	return out
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
