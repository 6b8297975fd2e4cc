package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studykit/ingest-worker/internal/domain"
	"github.com/studykit/ingest-worker/internal/generation"
	"github.com/studykit/ingest-worker/internal/redact"
)

// Deps bundles the collaborators shared by every pipeline variant.
type Deps struct {
	Store      DocumentStore
	Generator  generation.Generator
	Resolver   Resolver
	Extractor  TextExtractor
	Transcript TranscriptFetcher
	Scraper    Scraper
	Logger     *slog.Logger
}

// sourceFunc is the variant-specific Acquire+Normalize step: it produces
// the plain text to generate from, or a tagged error that short-circuits
// the pipeline.
type sourceFunc func(ctx context.Context, task *domain.IngestionTask) (string, error)

// contentPipeline is the shared pipeline skeleton. Validate, Generate and
// Persist are identical across variants; source supplies the rest.
type contentPipeline struct {
	name   string
	deps   Deps
	source sourceFunc
}

func (p *contentPipeline) Name() string {
	return p.name
}

// Run executes the pipeline for one task.
//
// Stage failures short-circuit: a task that fails validation never touches
// the store, and a task whose content cannot be acquired never reaches the
// generator. Only an explicit generator failure is persisted (as FAILED
// statuses on the record); every other failure leaves the record untouched.
func (p *contentPipeline) Run(ctx context.Context, task *domain.IngestionTask) error {
	logger := p.deps.Logger.With(
		"pipeline", p.name,
		"task_id", task.TaskID,
		"document_id", task.DocumentID,
	)

	// Validate
	if task.DocumentID == "" || task.UserID == "" {
		return fmt.Errorf("%w: missing documentId or userId", domain.ErrValidation)
	}

	// Acquire + Normalize
	text, err := p.source(ctx, task)
	if err != nil {
		return err
	}

	// Generate. An empty normalized text is pushed through deliberately;
	// the generator rejects it and the failure is recorded on the document
	// like any other generation failure.
	genStart := time.Now()
	artifact, genErr := p.deps.Generator.Generate(ctx, text)
	genElapsed := time.Since(genStart)

	// Persist
	if genErr != nil {
		logger.Error("generation failed, persisting failure statuses",
			"error", genErr,
			"generation_ms", genElapsed.Milliseconds())

		// The reason ends up on a record the producer shows to users, so
		// scrub credentials and paths out of it first.
		matched, updateErr := p.deps.Store.UpdateFailed(ctx, task.DocumentID, task.UserID, redact.Error(genErr))
		if updateErr != nil {
			return fmt.Errorf("%w: recording generation failure: %v", domain.ErrPersistence, updateErr)
		}
		if !matched {
			return fmt.Errorf("%w: no record matched while recording generation failure", domain.ErrPersistence)
		}
		return fmt.Errorf("%w: %v", domain.ErrGeneration, genErr)
	}

	logger.Info("artifact generated",
		"generation_ms", genElapsed.Milliseconds(),
		"flashcards", len(artifact.Flashcards),
		"mcqs", len(artifact.MCQs))

	matched, err := p.deps.Store.UpdateGenerated(ctx, task.DocumentID, task.UserID, artifact)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if !matched {
		return fmt.Errorf("%w: no record matched", domain.ErrPersistence)
	}

	return nil
}

// fetchContent reads the record's stored content, mapping store errors and
// empty content to the NotFound kind.
func fetchContent(ctx context.Context, store DocumentStore, task *domain.IngestionTask) (string, error) {
	content, err := store.GetContent(ctx, task.DocumentID, task.UserID)
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return "", fmt.Errorf("%w: document %s", domain.ErrNotFound, task.DocumentID)
		}
		return "", fmt.Errorf("%w: fetching content for %s: %v", domain.ErrNotFound, task.DocumentID, err)
	}
	if content == "" {
		return "", fmt.Errorf("%w: document %s has empty content", domain.ErrNotFound, task.DocumentID)
	}
	return content, nil
}
