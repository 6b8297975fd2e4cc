// Package objectstore resolves stored file URLs into local temporary
// files. A stored URL may point at a private S3-compatible bucket, at a
// publicly reachable address, or at an address that only works once
// rewritten onto a public base URL, so resolution walks a fallback chain
// of strategies until one produces readable bytes.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/studykit/ingest-worker/internal/config"
	"github.com/studykit/ingest-worker/internal/pipeline"
)

// browserUserAgent is sent on HTTP download attempts. Some file hosts
// refuse requests with default client user agents.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// LocalFile is a temporary local copy of resolved file bytes.
type LocalFile struct {
	path string
}

var _ pipeline.FileHandle = (*LocalFile)(nil)

// Path returns the location of the temporary file.
func (f *LocalFile) Path() string { return f.path }

// Cleanup deletes the temporary file. Calling it again after a
// successful delete is a no-op.
func (f *LocalFile) Cleanup() error {
	if f.path == "" {
		return nil
	}
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing temporary file %s: %w", f.path, err)
	}
	f.path = ""
	return nil
}

// strategy is one way of materializing a file URL locally. It writes
// into dst and returns an error if the bytes could not be fetched.
type strategy struct {
	name string
	run  func(ctx context.Context, fileURL, dst string) error
}

// Resolver resolves stored file URLs through an ordered strategy chain:
// object-store download for URLs under the configured endpoint, then a
// direct HTTP download, then a re-derived public-URL download.
type Resolver struct {
	logger *slog.Logger
	cfg    config.ObjectStoreConfig
	s3     *minio.Client
	http   *resty.Client
}

var _ pipeline.Resolver = (*Resolver)(nil)

// NewResolver creates a Resolver. The object-store strategy is only
// active when an endpoint and credentials are configured; the HTTP
// strategies always apply.
func NewResolver(logger *slog.Logger, cfg config.ObjectStoreConfig, fetch config.FetchConfig) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resolver{
		logger: logger.With(slog.String("component", "file_resolver")),
		cfg:    cfg,
		http: resty.New().
			SetTimeout(fetch.DownloadTimeout).
			SetHeader("User-Agent", browserUserAgent),
	}

	if cfg.Endpoint != "" && cfg.AccessKey != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid object store endpoint %q: %v", cfg.Endpoint, err)
		}
		client, err := minio.New(u.Host, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: u.Scheme == "https",
		})
		if err != nil {
			return nil, fmt.Errorf("creating object store client: %w", err)
		}
		r.s3 = client
	}

	return r, nil
}

// Resolve tries each applicable strategy in order and returns a handle
// to the first successful local copy. The temporary file from a failed
// attempt is removed before the next strategy runs.
func (r *Resolver) Resolve(ctx context.Context, fileURL string) (pipeline.FileHandle, error) {
	if fileURL == "" {
		return nil, errors.New("file URL is empty")
	}

	strategies := r.strategiesFor(fileURL)
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no applicable download strategy for %s", fileURL)
	}

	var lastErr error
	for _, s := range strategies {
		dst, err := tempPathFor(fileURL)
		if err != nil {
			return nil, err
		}

		if err := s.run(ctx, fileURL, dst); err != nil {
			_ = os.Remove(dst)
			lastErr = fmt.Errorf("%s: %w", s.name, err)
			r.logger.WarnContext(ctx, "download strategy failed",
				"strategy", s.name,
				"file_url", fileURL,
				"error", err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		r.logger.InfoContext(ctx, "file resolved",
			"strategy", s.name,
			"path", dst)
		return &LocalFile{path: dst}, nil
	}

	return nil, fmt.Errorf("all download strategies failed for %s: %w", fileURL, lastErr)
}

func (r *Resolver) strategiesFor(fileURL string) []strategy {
	var out []strategy

	if r.s3 != nil && strings.HasPrefix(fileURL, r.cfg.Endpoint) {
		out = append(out, strategy{name: "object_store", run: r.fetchFromStore})
	}
	out = append(out, strategy{name: "direct_http", run: r.fetchHTTP})
	if r.cfg.PublicBaseURL != "" {
		out = append(out, strategy{name: "public_base", run: r.fetchPublicBase})
	}
	return out
}

// objectKey derives the stored object key for URLs under the configured
// endpoint: the endpoint prefix is stripped and the configured bucket is
// prepended when the remainder lacks it, because files are stored with
// the bucket name as a key prefix. Both the store download and the
// public-base rebuild work from this same key.
func (r *Resolver) objectKey(fileURL string) (string, bool) {
	if r.cfg.Endpoint == "" || !strings.HasPrefix(fileURL, r.cfg.Endpoint) {
		return "", false
	}
	raw := strings.TrimPrefix(fileURL, r.cfg.Endpoint)
	raw = strings.TrimPrefix(raw, "/")
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	key, err := url.PathUnescape(raw)
	if err != nil {
		key = raw
	}
	if key == "" {
		return "", false
	}
	if r.cfg.Bucket != "" && !strings.HasPrefix(key, r.cfg.Bucket+"/") {
		key = r.cfg.Bucket + "/" + key
	}
	return key, true
}

// fetchFromStore downloads the derived object key. The bucket-prefixed
// key is tried with its leading segment as the bucket first, then whole
// inside the configured bucket.
func (r *Resolver) fetchFromStore(ctx context.Context, fileURL, dst string) error {
	key, ok := r.objectKey(fileURL)
	if !ok {
		return errors.New("no object key in URL")
	}

	if bucket, rest, ok := strings.Cut(key, "/"); ok && rest != "" {
		if err := r.s3.FGetObject(ctx, bucket, rest, dst, minio.GetObjectOptions{}); err == nil {
			return nil
		}
	}
	if r.cfg.Bucket == "" {
		return errors.New("object not found and no default bucket configured")
	}
	if err := r.s3.FGetObject(ctx, r.cfg.Bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("object download failed: %w", err)
	}
	return nil
}

// fetchHTTP downloads the URL as-is.
func (r *Resolver) fetchHTTP(ctx context.Context, fileURL, dst string) error {
	return r.download(ctx, fileURL, dst)
}

// fetchPublicBase rebuilds the URL on the public base for stores whose
// internal endpoint is not reachable from here. URLs under the endpoint
// are rebuilt from the derived bucket-prefixed key, matching what the
// store strategy downloads; others keep their path as-is.
func (r *Resolver) fetchPublicBase(ctx context.Context, fileURL, dst string) error {
	key, ok := r.objectKey(fileURL)
	if !ok {
		u, err := url.Parse(fileURL)
		if err != nil {
			return fmt.Errorf("unparseable file URL: %w", err)
		}
		key = strings.TrimPrefix(u.Path, "/")
	}
	rebuilt := strings.TrimSuffix(r.cfg.PublicBaseURL, "/") + "/" + key
	return r.download(ctx, rebuilt, dst)
}

func (r *Resolver) download(ctx context.Context, fileURL, dst string) error {
	resp, err := r.http.R().
		SetContext(ctx).
		SetOutput(dst).
		Get(fileURL)
	if err != nil {
		return fmt.Errorf("HTTP download failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("HTTP download returned status %d", resp.StatusCode())
	}
	return nil
}

// tempPathFor creates an empty temporary file whose name keeps the
// source extension, so downstream extractors can sniff the type.
func tempPathFor(fileURL string) (string, error) {
	ext := ""
	if u, err := url.Parse(fileURL); err == nil {
		ext = path.Ext(u.Path)
	}
	f, err := os.CreateTemp("", "ingest-*"+ext)
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("closing temporary file: %w", err)
	}
	return name, nil
}
