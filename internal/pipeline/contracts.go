// Package pipeline implements the content-type specific processing
// pipelines and the router that binds them to queue names. Every pipeline
// runs the same Validate -> Acquire -> Normalize -> Generate -> Persist
// sequence; variants differ only in how raw content is acquired and turned
// into plain text.
//
// Stages report failures as tagged errors from the domain package rather
// than panicking, so the skeleton is a straight-line composition of
// result-returning steps and the dispatcher can classify any outcome with
// errors.Is.
package pipeline

import (
	"context"
	"errors"

	"github.com/studykit/ingest-worker/internal/domain"
)

// ErrNoDocument is returned by DocumentStore reads when no record matches
// both the document id and the user id.
var ErrNoDocument = errors.New("no matching document record")

// DocumentStore is the external document record collaborator. Reads are
// scoped by an ownership check: a record must match both ids.
type DocumentStore interface {
	// GetContent returns the record's stored content (raw text, a video
	// link, or a page URL depending on content type). Returns ErrNoDocument
	// when the record is absent.
	GetContent(ctx context.Context, documentID, userID string) (string, error)

	// GetFileURL returns the record's stored file reference. Returns
	// ErrNoDocument when the record is absent or carries no file URL.
	GetFileURL(ctx context.Context, documentID, userID string) (string, error)

	// UpdateGenerated writes the artifact and COMPLETED statuses to the
	// record in one atomic update. Reports whether a record matched.
	UpdateGenerated(ctx context.Context, documentID, userID string, artifact *domain.GeneratedArtifact) (bool, error)

	// UpdateFailed writes FAILED statuses and the error reason instead of
	// artifact fields, in one atomic update. Reports whether a record
	// matched.
	UpdateFailed(ctx context.Context, documentID, userID, reason string) (bool, error)
}

// FileHandle is a local, caller-owned copy of acquired file bytes. Cleanup
// must be called on every exit path once processing completes or fails.
type FileHandle interface {
	// Path is the location of the temporary local file.
	Path() string

	// Cleanup deletes the temporary file. Safe to call more than once.
	Cleanup() error
}

// Resolver turns an opaque stored file reference into local readable bytes,
// trying several strategies in order until one succeeds.
type Resolver interface {
	Resolve(ctx context.Context, fileURL string) (FileHandle, error)
}

// TextExtractor extracts plain text from a local file.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

// TranscriptFetcher retrieves the transcript for a linked video. A video
// with transcripts disabled or unavailable yields an empty string, not an
// error.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, link string) (string, error)
}

// Scraper fetches a web page and returns its rendered text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Pipeline processes one ingestion task end to end. Run returns nil on
// success or an error classified by one of the domain.Err* sentinels; it
// never panics for modeled failures.
type Pipeline interface {
	// Name identifies the pipeline variant in logs.
	Name() string

	Run(ctx context.Context, task *domain.IngestionTask) error
}
