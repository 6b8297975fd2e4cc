// Package domain defines the core entities of the ingestion worker and the
// tagged error taxonomy shared by every pipeline stage.
package domain

import "errors"

// Pipeline error kinds. Every stage failure is classified as exactly one of
// these before it reaches a PipelineResult; callers classify with errors.Is.
var (
	// ErrValidation is returned when a task is missing a required id.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when the document record or its content is
	// absent from the document store.
	ErrNotFound = errors.New("document not found")

	// ErrDownload is returned when every acquisition strategy for a stored
	// file reference has been exhausted.
	ErrDownload = errors.New("download failed")

	// ErrGeneration is returned when the content generator exhausted its
	// retries or produced a malformed artifact.
	ErrGeneration = errors.New("generation failed")

	// ErrPersistence is returned when the document store update matched no
	// record. The generated artifact is lost unless the whole task is
	// resubmitted.
	ErrPersistence = errors.New("persistence failed")

	// ErrTimeout is returned when a pipeline execution exceeded the
	// configured task timeout.
	ErrTimeout = errors.New("task timed out")
)
