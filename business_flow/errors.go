// Package businessflow contains the core business logic and use cases for account workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Account-related errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrAlreadyVerified    = errors.New("already verified")
	ErrNotAuthorized      = errors.New("not authorized")

	// Verification errors
	ErrVerificationTokenNotFound = errors.New("verification token not found")

	// Avatar errors
	ErrAvatarFileRequired    = errors.New("avatar file is required")
	ErrAvatarTooLarge        = errors.New("avatar file is too large")
	ErrUnsupportedAvatarType = errors.New("unsupported avatar file type")

	// Contact errors
	ErrContactNotFound       = errors.New("contact not found")
	ErrContactUpdateRequired = errors.New("at least one field must be provided for update")

	// Infrastructure errors
	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsEmailNotVerified(err error) bool {
	return errors.Is(err, ErrEmailNotVerified)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

func IsVerificationTokenNotFound(err error) bool {
	return errors.Is(err, ErrVerificationTokenNotFound)
}

func IsAvatarFileRequired(err error) bool {
	return errors.Is(err, ErrAvatarFileRequired)
}

func IsAvatarTooLarge(err error) bool {
	return errors.Is(err, ErrAvatarTooLarge)
}

func IsUnsupportedAvatarType(err error) bool {
	return errors.Is(err, ErrUnsupportedAvatarType)
}

func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

func IsContactUpdateRequired(err error) bool {
	return errors.Is(err, ErrContactUpdateRequired)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
