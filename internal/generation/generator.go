package generation

import (
	"context"

	"github.com/studykit/ingest-worker/internal/domain"
)

// Generator defines the interface for producing structured study artifacts
// from plain text. It is the boundary between the pipeline core and the
// external AI/LLM service: implementations own their own retry and
// response-validation behavior and surface only the sentinel errors in
// errors.go once attempts are exhausted.
type Generator interface {
	// Generate creates a summary, flashcards and MCQs for the given text.
	// The context carries the per-task deadline; implementations must stop
	// retrying when it expires.
	Generate(ctx context.Context, text string) (*domain.GeneratedArtifact, error)
}
