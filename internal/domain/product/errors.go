package product

import "errors"

var (
	// ErrProductNotFound indicates the product doesn't exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrPartNotFound indicates the part definition doesn't exist.
	ErrPartNotFound = errors.New("part definition not found")
	// ErrInvalidInput indicates invalid product or part input.
	ErrInvalidInput = errors.New("invalid product input")
)
