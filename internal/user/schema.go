package user

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema applies field transforms and validates users.
// Every violated field is reported, not just the first one.
type Schema struct {
	v *validator.Validate
}

// NewSchema builds a Schema with the custom validators the user document needs.
func NewSchema() *Schema {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("hasat", func(fl validator.FieldLevel) bool {
		return strings.Contains(fl.Field().String(), "@")
	})
	if err != nil {
		panic(fmt.Sprintf("register hasat validator: %v", err))
	}
	return &Schema{v: v}
}

// Normalize applies write-time transforms. It must run before Validate.
func Normalize(u *User) {
	u.Email = strings.ToLower(u.Email)
}

// Validate checks u against the schema. A nil return means u may be persisted.
func (s *Schema) Validate(u *User) error {
	err := s.v.Struct(u)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate user: %w", err)
	}
	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:  fe.Field(),
			Rule:   fe.Tag(),
			Reason: reason(fe),
		})
	}
	return out
}

func reason(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if unit != "" {
			return "must be at least " + fe.Param() + unit
		}
		return "must be at least " + fe.Param()
	case "max":
		if unit != "" {
			return "must be at most " + fe.Param() + unit
		}
		return "must be at most " + fe.Param()
	case "hasat":
		return "must contain @"
	}
	return "failed " + fe.Tag() + " validation"
}
