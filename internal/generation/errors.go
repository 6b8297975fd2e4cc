// Package generation defines the content-generation boundary of the worker.
package generation

import "errors"

// Common errors returned by Generator implementations
var (
	// ErrEmptyInput is returned when there is no text to generate from.
	// Pipelines deliberately push empty normalized text here rather than
	// failing earlier, so the rejection is centralized.
	ErrEmptyInput = errors.New("no text to generate from")

	// ErrInvalidResponse is returned when the model response cannot be
	// parsed or fails artifact validation after all re-solicitations.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrTransientFailure is returned when the model API kept failing
	// through every retry attempt.
	ErrTransientFailure = errors.New("transient error during generation")

	// ErrContentBlocked is returned when the model refuses the request on
	// safety grounds. Retrying the same input will not help.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrInvalidConfig is returned when the generator configuration is
	// invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
