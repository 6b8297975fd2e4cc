// Package pdftext extracts plain text from PDF files for normalization.
package pdftext

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/studykit/ingest-worker/internal/pipeline"
)

// Extractor pulls page text out of PDF files with unipdf. Pages that
// fail extraction are skipped rather than failing the document; a
// scanned or image-only PDF therefore yields an empty string, and the
// caller decides what an empty result means.
type Extractor struct {
	logger *slog.Logger
}

var _ pipeline.TextExtractor = (*Extractor)(nil)

// NewExtractor creates a PDF text extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With(slog.String("component", "pdf_extractor"))}
}

// ExtractText reads the PDF at path and returns its page text joined
// with blank lines.
func (e *Extractor) ExtractText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader, err := model.NewPdfReader(f)
	if err != nil {
		return "", fmt.Errorf("reading PDF: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("counting PDF pages: %w", err)
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			e.logger.Warn("skipping unreadable page", "page", i, "error", err)
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			e.logger.Warn("skipping page without extractor", "page", i, "error", err)
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			e.logger.Warn("skipping page that failed extraction", "page", i, "error", err)
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
