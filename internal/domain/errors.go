package domain

import "errors"

var (
	// ErrCreateUser signals that sign-up returned no user.
	ErrCreateUser = errors.New("auth: failed to create user")
	// ErrConfirmationRequired signals a user was created but no session was issued.
	ErrConfirmationRequired = errors.New("auth: email confirmation required")
	// ErrInvalidCredentials signals sign-in returned no user.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken signals the bearer token does not resolve to a user.
	ErrInvalidToken = errors.New("auth: invalid token")
)
