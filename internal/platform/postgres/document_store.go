// Package postgres implements the document-store contract against the
// PostgreSQL database owned by the producer service. The worker reads and
// writes single records by (document id, user id); the schema itself
// belongs to the producer.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studykit/ingest-worker/internal/domain"
	"github.com/studykit/ingest-worker/internal/pipeline"
)

// Record status values written back to documents.
const (
	statusCompleted = "COMPLETED"
	statusFailed    = "FAILED"
)

// DB is the subset of pgxpool.Pool the store uses, extracted so tests can
// substitute a fake connection.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DocumentStore implements pipeline.DocumentStore using a PostgreSQL
// database as the storage backend.
type DocumentStore struct {
	db     DB
	logger *slog.Logger
}

// Ensure DocumentStore implements the pipeline contract
var _ pipeline.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a document store over the given connection.
// If logger is nil, the default logger is used.
func NewDocumentStore(db DB, logger *slog.Logger) *DocumentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{
		db:     db,
		logger: logger.With(slog.String("component", "document_store")),
	}
}

// Connect opens a pgx connection pool for the given URL and verifies it
// with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return pool, nil
}

// GetContent returns the record's stored content, scoped by the ownership
// check on both ids.
func (s *DocumentStore) GetContent(ctx context.Context, documentID, userID string) (string, error) {
	var content string
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(content, '') FROM documents WHERE id = $1 AND user_id = $2`,
		documentID, userID,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: document %s for user %s", pipeline.ErrNoDocument, documentID, userID)
		}
		return "", fmt.Errorf("fetching document content: %w", err)
	}
	return content, nil
}

// GetFileURL returns the record's stored file reference. A record without
// a file URL is reported as absent, matching the read contract.
func (s *DocumentStore) GetFileURL(ctx context.Context, documentID, userID string) (string, error) {
	var fileURL string
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(file_url, '') FROM documents WHERE id = $1 AND user_id = $2`,
		documentID, userID,
	).Scan(&fileURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: document %s for user %s", pipeline.ErrNoDocument, documentID, userID)
		}
		return "", fmt.Errorf("fetching document file URL: %w", err)
	}
	if fileURL == "" {
		return "", fmt.Errorf("%w: document %s has no file URL", pipeline.ErrNoDocument, documentID)
	}
	return fileURL, nil
}

// UpdateGenerated writes the artifact fields and COMPLETED statuses in one
// atomic update, reporting whether a record matched.
func (s *DocumentStore) UpdateGenerated(ctx context.Context, documentID, userID string, artifact *domain.GeneratedArtifact) (bool, error) {
	flashcards, err := json.Marshal(artifact.Flashcards)
	if err != nil {
		return false, fmt.Errorf("marshaling flashcards: %w", err)
	}
	mcqs, err := json.Marshal(artifact.MCQs)
	if err != nil {
		return false, fmt.Errorf("marshaling mcqs: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE documents
		 SET summary = $3,
		     flashcards = $4,
		     mcqs = $5,
		     summary_status = $6,
		     flashcard_status = $6,
		     mcq_status = $6,
		     processing_error = NULL,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		documentID, userID, artifact.Summary, flashcards, mcqs, statusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("updating document with artifact: %w", err)
	}

	matched := tag.RowsAffected() > 0
	if matched {
		s.logger.Info("document updated with generated artifact",
			"document_id", documentID)
	}
	return matched, nil
}

// UpdateFailed writes FAILED statuses and the error reason instead of
// artifact fields, reporting whether a record matched.
func (s *DocumentStore) UpdateFailed(ctx context.Context, documentID, userID, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents
		 SET summary_status = $3,
		     flashcard_status = $3,
		     mcq_status = $3,
		     processing_error = $4,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		documentID, userID, statusFailed, reason,
	)
	if err != nil {
		return false, fmt.Errorf("updating document with failure: %w", err)
	}

	matched := tag.RowsAffected() > 0
	if matched {
		s.logger.Warn("document marked as failed",
			"document_id", documentID,
			"reason", reason)
	}
	return matched, nil
}
