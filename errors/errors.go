package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrInvalidCredentials          = fmt.Errorf("invalid credentials")
	ErrIdentifierAlreadyRegistered = fmt.Errorf("identifier already registered")
	ErrSendFailed                  = fmt.Errorf("send failed")
	ErrStreamUnavailable           = fmt.Errorf("stream unavailable")
	ErrValidation                  = fmt.Errorf("validation error")
	ErrEmptyMessage                = fmt.Errorf("%w: message is empty", ErrValidation)
	ErrEmptyCredentials            = fmt.Errorf("%w: identifier and secret are required", ErrValidation)
	ErrSendInProgress              = fmt.Errorf("a message is already being sent")
	ErrNoSession                   = fmt.Errorf("no active session")
	ErrSubscriptionClosed          = fmt.Errorf("subscription closed")
	ErrUserNotFound                = fmt.Errorf("user not found")
	ErrTokenGeneration             = fmt.Errorf("token generation failed")
)

const (
	invalidCredentialsMessage = "Invalid email or password. Please try again."
	alreadyRegisteredMessage  = "This email is already registered. Please login instead."
	emptyCredentialsMessage   = "Please fill in all fields"
	defaultAuthMessage        = "Failed to authenticate"
)

// UserMessage turns an authentication error into the text shown on the auth form.
// Unknown provider failures surface their raw message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrInvalidCredentials):
		return invalidCredentialsMessage
	case stderrors.Is(err, ErrIdentifierAlreadyRegistered):
		return alreadyRegisteredMessage
	case stderrors.Is(err, ErrEmptyCredentials):
		return emptyCredentialsMessage
	case err.Error() == "":
		return defaultAuthMessage
	default:
		return err.Error()
	}
}
