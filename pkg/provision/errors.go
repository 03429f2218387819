package provision

import "errors"

var (
	// ErrDuplicateUser is returned by CreateUser for an id that already
	// has a record.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrUserNotFound is returned by DeleteUser for an unknown id.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUserID is returned before any state change for a missing
	// or malformed user id.
	ErrInvalidUserID = errors.New("invalid user id")
)
