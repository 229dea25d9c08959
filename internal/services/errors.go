package services

import "errors"

var (
	// ErrNotFound is returned when a referenced class request is absent.
	ErrNotFound = errors.New("class request not found")

	// ErrNotAuthorized is returned when the actor does not own the
	// resource. Message deletion also folds "not found" into this error
	// so callers cannot probe for message existence.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrAlreadyJoined is returned when a student joins a class request
	// twice.
	ErrAlreadyJoined = errors.New("student already joined")
)
