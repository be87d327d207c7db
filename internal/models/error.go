package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidPassword    = errors.New("current password is incorrect")
	ErrPasswordMismatch   = errors.New("new passwords do not match")

	// Local uniqueness errors
	ErrEmailTaken    = errors.New("email already exists")
	ErrUsernameTaken = errors.New("username already exists")
)
