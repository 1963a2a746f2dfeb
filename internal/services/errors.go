package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("not found")

	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrDoctorNotFound      = fmt.Errorf("doctor %w", ErrNotFound)
	ErrPatientNotFound     = fmt.Errorf("patient %w", ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("appointment %w", ErrNotFound)
	ErrPredictionNotFound  = fmt.Errorf("prediction %w", ErrNotFound)

	ErrEmailTaken         = errors.New("email already registered")
	ErrProfileExists      = errors.New("profile already completed")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidCode        = errors.New("invalid code")
	ErrCodeExpired        = errors.New("invalid or expired code")
	ErrInvalidCredentials = errors.New("could not validate credentials")
	ErrIncorrectLogin     = errors.New("incorrect credentials")
	ErrInactiveUser       = errors.New("inactive user")
	ErrEmailDelivery      = errors.New("could not send verification email")
)

// validationError wraps ErrValidation with a client-facing message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
