package servefile

import "errors"

var (
	// ErrNotFound is returned when a path component does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when access is denied or a symlink leaves its directory
	ErrForbidden = errors.New("forbidden")
	// ErrNotDirectory is returned when a lookup is made relative to a non-directory
	ErrNotDirectory = errors.New("not a directory")
	// ErrIO is returned for storage failures other than the above
	ErrIO = errors.New("i/o failure")
	// ErrInvalidPath is returned when a request path fails segment validation
	ErrInvalidPath = errors.New("invalid path")
	// ErrMethodNotAllowed is returned for methods other than GET and HEAD
	ErrMethodNotAllowed = errors.New("method not allowed")
	// ErrInvalidInput is returned when configuration validation fails
	ErrInvalidInput = errors.New("invalid input")
)
