package services

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for unknown emails, wrong
	// passwords and blocked accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials or blocked")

	// ErrUnauthorized is returned when a session token does not resolve to
	// a live, non-blocked user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
