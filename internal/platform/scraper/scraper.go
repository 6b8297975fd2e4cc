// Package scraper fetches web pages and reduces them to readable text.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/studykit/ingest-worker/internal/pipeline"
)

// Elements whose text is chrome or code rather than page content.
var strippedSelectors = []string{"script", "style", "noscript", "nav", "header", "footer", "iframe"}

// PageScraper fetches a page over HTTP and extracts its visible text
// with goquery.
type PageScraper struct {
	logger *slog.Logger
	http   *resty.Client
}

var _ pipeline.Scraper = (*PageScraper)(nil)

// NewPageScraper creates a scraper over the given HTTP client.
func NewPageScraper(logger *slog.Logger, http *resty.Client) *PageScraper {
	if logger == nil {
		logger = slog.Default()
	}
	if http == nil {
		http = resty.New()
	}
	return &PageScraper{
		logger: logger.With(slog.String("component", "page_scraper")),
		http:   http,
	}
}

// Scrape fetches the page and returns its body text with layout
// elements removed and whitespace collapsed to single spaces.
func (s *PageScraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetching page: status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("parsing page HTML: %w", err)
	}

	doc.Find(strings.Join(strippedSelectors, ", ")).Remove()

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	s.logger.DebugContext(ctx, "page scraped",
		"url", pageURL,
		"text_length", len(text))
	return text, nil
}
