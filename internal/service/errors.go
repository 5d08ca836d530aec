package service

import "errors"

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateUsername is returned when attempting to register with an existing username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidInput wraps validation failures of user supplied values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when the referenced task or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthorized is returned when a user acts on a task owned by someone else.
	ErrNotAuthorized = errors.New("not authorized")
)
