// Package packerr defines the error taxonomy shared by every build stage.
//
// Stages wrap these sentinels with context (fmt.Errorf("%w: ...")) so callers
// can branch with errors.Is regardless of which package produced the failure.
package packerr

import "errors"

var (
	// ErrSourceNotFound indicates an expected base or overlay input is missing.
	ErrSourceNotFound = errors.New("source not found")

	// ErrAlreadyExists indicates a skeleton path or staged file collides with an existing entry.
	ErrAlreadyExists = errors.New("already exists")

	// ErrOverwrite indicates a destination is already populated and overwrite was not forced.
	ErrOverwrite = errors.New("destination already populated, use --force to overwrite")

	// ErrMalformedDocument indicates a model document lacks the fields this tool edits.
	ErrMalformedDocument = errors.New("malformed model document")

	// ErrIO indicates a generic filesystem failure.
	ErrIO = errors.New("filesystem error")

	// ErrPublish indicates the artifact could not be published.
	ErrPublish = errors.New("publish failed")
)
