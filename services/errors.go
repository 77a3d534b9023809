// Package services holds the business rules: daily planning and rollup, rewards,
// registration seeding, plan pricing and the profile views.
package services

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError carries a message fit for the client and matches ErrInvalidInput.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

var errUsernameReserved = invalid("username is reserved")
