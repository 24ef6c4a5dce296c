package editor

import "errors"

var (
	// ErrNoDocument indicates an operation that needs a loaded document
	// was called with none.
	ErrNoDocument = errors.New("no document loaded")
	// ErrMissingOriginalID indicates a new-version save was attempted on
	// a document that isn't linked into a version chain.
	ErrMissingOriginalID = errors.New("document has no original id")
	// ErrInvalidInput indicates invalid editor input.
	ErrInvalidInput = errors.New("invalid editor input")
)
