// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// profileIdentifierPattern accepts public slugs (possibly percent-encoded)
// and provider-internal ids; whitespace and slashes are rejected.
var profileIdentifierPattern = regexp.MustCompile(`^[A-Za-z0-9_%\-.]{1,200}$`)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the "profileid" rule registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("profileid", func(fl validator.FieldLevel) bool {
		return profileIdentifierPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}
