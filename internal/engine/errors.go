package engine

import "errors"

var (
	// ErrValidation indicates a request carried an unsafe or empty identifier,
	// or an output directory inside the pack root.
	ErrValidation = errors.New("validation failed")

	// ErrNoPublisher indicates publishing was requested without a configured publisher.
	ErrNoPublisher = errors.New("no publisher configured")
)
