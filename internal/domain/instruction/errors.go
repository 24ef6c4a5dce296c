package instruction

import "errors"

var (
	// ErrInstructionNotFound indicates the work instruction doesn't exist.
	ErrInstructionNotFound = errors.New("work instruction not found")
	// ErrInvalidInput indicates invalid work-instruction input.
	ErrInvalidInput = errors.New("invalid work instruction input")
	// ErrInstructionInUse indicates production logs reference the instruction.
	ErrInstructionInUse = errors.New("work instruction has recorded production logs")
)
