package auth

import (
	"fmt"
	"realtime-chat/errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=72"`
}

// RequireCredentials rejects empty fields before any provider call.
func RequireCredentials(identifier, secret string) error {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		return errors.ErrEmptyCredentials
	}
	return nil
}

// ValidateCredentials applies the signup rules: a well-formed email and
// a password the provider accepts.
func ValidateCredentials(c Credentials) error {
	if err := RequireCredentials(c.Email, c.Password); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}
