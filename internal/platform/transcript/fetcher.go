// Package transcript retrieves caption text for linked videos. Videos
// with captions disabled are common, so an unavailable transcript is a
// normal empty result rather than an error; the generation stage is the
// single place that rejects empty input.
package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/studykit/ingest-worker/internal/pipeline"
)

const defaultTimedTextURL = "https://www.youtube.com/api/timedtext"

// videoIDPattern matches a standard 11-character video identifier.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// timedTextDoc mirrors the caption XML document: a flat list of timed
// text cues.
type timedTextDoc struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// Fetcher retrieves video transcripts from the timed-text endpoint.
type Fetcher struct {
	logger   *slog.Logger
	http     *resty.Client
	endpoint string
	lang     string
}

var _ pipeline.TranscriptFetcher = (*Fetcher)(nil)

// NewFetcher creates a transcript fetcher.
func NewFetcher(logger *slog.Logger, http *resty.Client) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if http == nil {
		http = resty.New()
	}
	return &Fetcher{
		logger:   logger.With(slog.String("component", "transcript_fetcher")),
		http:     http,
		endpoint: defaultTimedTextURL,
		lang:     "en",
	}
}

// Transcript returns the caption text for the given video link, with
// cues joined by single spaces. An unrecognized link, a transport
// failure, or a video without captions all yield ("", nil); the caller
// treats empty text as degraded, not fatal.
func (f *Fetcher) Transcript(ctx context.Context, link string) (string, error) {
	videoID, err := ParseVideoID(link)
	if err != nil {
		f.logger.WarnContext(ctx, "unrecognized video link", "link", link, "error", err)
		return "", nil
	}

	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lang": f.lang,
			"v":    videoID,
		}).
		Get(f.endpoint)
	if err != nil {
		f.logger.WarnContext(ctx, "transcript fetch failed", "video_id", videoID, "error", err)
		return "", nil
	}
	if resp.IsError() {
		f.logger.WarnContext(ctx, "transcript fetch rejected",
			"video_id", videoID,
			"status", resp.StatusCode())
		return "", nil
	}

	body := resp.Body()
	if len(body) == 0 {
		// The endpoint answers 200 with an empty body when captions
		// are disabled for the video.
		f.logger.InfoContext(ctx, "no captions available", "video_id", videoID)
		return "", nil
	}

	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		f.logger.WarnContext(ctx, "unparseable transcript document",
			"video_id", videoID,
			"error", err)
		return "", nil
	}

	cues := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		cue := strings.TrimSpace(html.UnescapeString(t.Value))
		if cue != "" {
			cues = append(cues, cue)
		}
	}
	return strings.Join(cues, " "), nil
}

// ParseVideoID extracts the video identifier from the common link
// shapes: a watch URL with a v parameter, a short youtu.be URL, an
// embed URL, or a bare identifier.
func ParseVideoID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", fmt.Errorf("empty video link")
	}
	if videoIDPattern.MatchString(link) {
		return link, nil
	}

	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("unparseable video link: %w", err)
	}

	if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
		return v, nil
	}

	host := strings.TrimPrefix(u.Host, "www.")
	pathID := strings.Trim(u.Path, "/")
	if host == "youtu.be" && videoIDPattern.MatchString(pathID) {
		return pathID, nil
	}
	if id := strings.TrimPrefix(pathID, "embed/"); id != pathID && videoIDPattern.MatchString(id) {
		return id, nil
	}

	return "", fmt.Errorf("no video id in link %q", link)
}
