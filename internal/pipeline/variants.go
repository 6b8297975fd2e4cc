package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/studykit/ingest-worker/internal/domain"
)

// NewPDF builds the PDF pipeline: the record's file URL is resolved to a
// local file through the acquisition resolver and its page text extracted.
func NewPDF(deps Deps) Pipeline {
	return &contentPipeline{
		name: "pdf",
		deps: deps,
		source: func(ctx context.Context, task *domain.IngestionTask) (string, error) {
			fileURL, err := deps.Store.GetFileURL(ctx, task.DocumentID, task.UserID)
			if err != nil {
				if errors.Is(err, ErrNoDocument) {
					return "", fmt.Errorf("%w: file URL for document %s", domain.ErrNotFound, task.DocumentID)
				}
				return "", fmt.Errorf("%w: fetching file URL for %s: %v", domain.ErrNotFound, task.DocumentID, err)
			}

			handle, err := deps.Resolver.Resolve(ctx, fileURL)
			if err != nil {
				return "", fmt.Errorf("%w: %v", domain.ErrDownload, err)
			}
			defer func() {
				if cleanupErr := handle.Cleanup(); cleanupErr != nil {
					deps.Logger.Warn("failed to clean up temporary file",
						"path", handle.Path(), "error", cleanupErr)
				}
			}()

			text, err := deps.Extractor.ExtractText(handle.Path())
			if err != nil {
				return "", fmt.Errorf("%w: extracting text from %s: %v", domain.ErrNotFound, fileURL, err)
			}
			if text == "" {
				return "", fmt.Errorf("%w: document %s produced no text", domain.ErrNotFound, task.DocumentID)
			}
			return text, nil
		},
	}
}

// NewText builds the raw-text pipeline: the stored content passes through
// unchanged.
func NewText(deps Deps) Pipeline {
	return &contentPipeline{
		name: "text",
		deps: deps,
		source: func(ctx context.Context, task *domain.IngestionTask) (string, error) {
			return fetchContent(ctx, deps.Store, task)
		},
	}
}

// NewVideo builds the video pipeline: the stored content is the video link
// and its transcript is the text to study. A video with transcripts
// disabled normalizes to an empty string; the generator then rejects it,
// which is the recorded failure mode.
func NewVideo(deps Deps) Pipeline {
	return &contentPipeline{
		name: "video",
		deps: deps,
		source: func(ctx context.Context, task *domain.IngestionTask) (string, error) {
			link, err := fetchContent(ctx, deps.Store, task)
			if err != nil {
				return "", err
			}

			transcript, err := deps.Transcript.Transcript(ctx, link)
			if err != nil {
				deps.Logger.Warn("transcript unavailable, continuing with empty text",
					"task_id", task.TaskID, "error", err)
				return "", nil
			}
			return transcript, nil
		},
	}
}

// NewWebsite builds the website pipeline: the stored content is the page
// URL and its scraped text is what gets studied. Scrape failures degrade to
// empty text rather than erroring.
func NewWebsite(deps Deps) Pipeline {
	return &contentPipeline{
		name: "website",
		deps: deps,
		source: func(ctx context.Context, task *domain.IngestionTask) (string, error) {
			url, err := fetchContent(ctx, deps.Store, task)
			if err != nil {
				return "", err
			}

			text, err := deps.Scraper.Scrape(ctx, url)
			if err != nil {
				deps.Logger.Warn("scrape failed, continuing with empty text",
					"task_id", task.TaskID, "url", url, "error", err)
				return "", nil
			}
			return text, nil
		},
	}
}
