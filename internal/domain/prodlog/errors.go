package prodlog

import "errors"

var (
	// ErrLogNotFound indicates the production log doesn't exist.
	ErrLogNotFound = errors.New("production log not found")
	// ErrInvalidInput indicates invalid production-log input.
	ErrInvalidInput = errors.New("invalid production log input")
	// ErrUnknownStep indicates a log step references a step node that
	// isn't part of the log's work instruction.
	ErrUnknownStep = errors.New("log step references unknown instruction step")
)
