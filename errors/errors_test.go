package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"No error", nil, ""},
		{"Invalid credentials", ErrInvalidCredentials, "Invalid email or password. Please try again."},
		{"Wrapped already registered", fmt.Errorf("signup: %w", ErrIdentifierAlreadyRegistered), "This email is already registered. Please login instead."},
		{"Empty credentials", ErrEmptyCredentials, "Please fill in all fields"},
		{"Raw provider error", fmt.Errorf("too many requests"), "too many requests"},
		{"Provider error without message", fmt.Errorf(""), "Failed to authenticate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestValidationErrors(t *testing.T) {
	req := require.New(t)
	req.ErrorIs(ErrEmptyMessage, ErrValidation)
	req.ErrorIs(ErrEmptyCredentials, ErrValidation)
	req.NotErrorIs(ErrSendInProgress, ErrValidation)
}
