package objectstore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studykit/ingest-worker/internal/config"
)

func testResolver(t *testing.T, cfg config.ObjectStoreConfig) *Resolver {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := NewResolver(logger, cfg, config.FetchConfig{DownloadTimeout: 5 * time.Second})
	require.NoError(t, err)
	return r
}

func readAndCleanup(t *testing.T, f *LocalFile) string {
	t.Helper()
	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	require.NoError(t, f.Cleanup())
	return string(data)
}

func TestResolveDirectHTTP(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("pdf bytes"))
	}))
	defer srv.Close()

	r := testResolver(t, config.ObjectStoreConfig{})
	handle, err := r.Resolve(context.Background(), srv.URL+"/files/doc.pdf")

	require.NoError(t, err)
	lf := handle.(*LocalFile)
	assert.Equal(t, ".pdf", filepath.Ext(lf.Path()))
	assert.Equal(t, "pdf bytes", readAndCleanup(t, lf))
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestResolveFallsBackToPublicBase(t *testing.T) {
	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bucket/doc.pdf" {
			_, _ = w.Write([]byte("from public base"))
			return
		}
		http.NotFound(w, r)
	}))
	defer public.Close()

	private := httptest.NewServer(http.NotFoundHandler())
	defer private.Close()

	r := testResolver(t, config.ObjectStoreConfig{PublicBaseURL: public.URL})
	handle, err := r.Resolve(context.Background(), private.URL+"/bucket/doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, "from public base", readAndCleanup(t, handle.(*LocalFile)))
}

func TestResolveAllStrategiesFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	r := testResolver(t, config.ObjectStoreConfig{PublicBaseURL: srv.URL})
	_, err := r.Resolve(context.Background(), srv.URL+"/missing.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all download strategies failed")
}

func TestResolveEmptyURL(t *testing.T) {
	r := testResolver(t, config.ObjectStoreConfig{})
	_, err := r.Resolve(context.Background(), "")
	assert.Error(t, err)
}

func TestResolveCancelledContextStopsChain(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := testResolver(t, config.ObjectStoreConfig{PublicBaseURL: srv.URL})
	_, err := r.Resolve(ctx, srv.URL+"/doc.pdf")
	assert.Error(t, err)
}

func TestStrategyOrdering(t *testing.T) {
	t.Run("bare HTTP only", func(t *testing.T) {
		r := testResolver(t, config.ObjectStoreConfig{})
		names := strategyNames(r.strategiesFor("https://files.example.com/a.pdf"))
		assert.Equal(t, []string{"direct_http"}, names)
	})

	t.Run("public base adds a last resort", func(t *testing.T) {
		r := testResolver(t, config.ObjectStoreConfig{PublicBaseURL: "https://cdn.example.com"})
		names := strategyNames(r.strategiesFor("https://files.example.com/a.pdf"))
		assert.Equal(t, []string{"direct_http", "public_base"}, names)
	})

	t.Run("endpoint match puts object store first", func(t *testing.T) {
		r := testResolver(t, config.ObjectStoreConfig{
			Endpoint:  "https://store.example.com",
			AccessKey: "key",
			SecretKey: "secret",
			Bucket:    "learning",
		})
		names := strategyNames(r.strategiesFor("https://store.example.com/learning/a.pdf"))
		assert.Equal(t, []string{"object_store", "direct_http"}, names)
	})

	t.Run("endpoint mismatch skips object store", func(t *testing.T) {
		r := testResolver(t, config.ObjectStoreConfig{
			Endpoint:  "https://store.example.com",
			AccessKey: "key",
			SecretKey: "secret",
		})
		names := strategyNames(r.strategiesFor("https://elsewhere.example.com/a.pdf"))
		assert.Equal(t, []string{"direct_http"}, names)
	})
}

func strategyNames(ss []strategy) []string {
	names := make([]string, 0, len(ss))
	for _, s := range ss {
		names = append(names, s.name)
	}
	return names
}

func TestObjectKeyDerivation(t *testing.T) {
	r := testResolver(t, config.ObjectStoreConfig{
		Endpoint:  "https://store.example.com",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "learning",
	})

	cases := []struct {
		name    string
		fileURL string
		want    string
		wantOK  bool
	}{
		{"bucket prefix added when missing", "https://store.example.com/documents/a.pdf", "learning/documents/a.pdf", true},
		{"bucket prefix kept when present", "https://store.example.com/learning/documents/a.pdf", "learning/documents/a.pdf", true},
		{"query string dropped", "https://store.example.com/documents/a.pdf?X-Amz-Signature=abc", "learning/documents/a.pdf", true},
		{"URL outside the endpoint", "https://elsewhere.example.com/documents/a.pdf", "", false},
		{"endpoint with no key", "https://store.example.com/", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := r.objectKey(tc.fileURL)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

// A stored URL that lacks the bucket prefix must be rebuilt on the
// public base with the same bucket-prefixed key the store strategy
// derives, not with the original URL path.
func TestPublicBaseUsesDerivedKey(t *testing.T) {
	var publicPaths []string
	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		publicPaths = append(publicPaths, r.URL.Path)
		if r.URL.Path == "/learning/documents/doc.pdf" {
			_, _ = w.Write([]byte("from public base"))
			return
		}
		http.NotFound(w, r)
	}))
	defer public.Close()

	// Store endpoint that rejects both the object download and the
	// direct HTTP attempt.
	private := httptest.NewServer(http.NotFoundHandler())
	defer private.Close()

	r := testResolver(t, config.ObjectStoreConfig{
		Endpoint:      private.URL,
		AccessKey:     "key",
		SecretKey:     "secret",
		Bucket:        "learning",
		PublicBaseURL: public.URL,
	})

	handle, err := r.Resolve(context.Background(), private.URL+"/documents/doc.pdf")

	require.NoError(t, err)
	assert.Equal(t, "from public base", readAndCleanup(t, handle.(*LocalFile)))
	assert.Equal(t, []string{"/learning/documents/doc.pdf"}, publicPaths)
}

func TestLocalFileCleanupIsIdempotent(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "doc-*.pdf")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	lf := &LocalFile{path: f.Name()}
	require.NoError(t, lf.Cleanup())
	assert.NoFileExists(t, f.Name())
	assert.NoError(t, lf.Cleanup())
}

func TestNewResolverRejectsBadEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewResolver(logger, config.ObjectStoreConfig{
		Endpoint:  "://not-a-url",
		AccessKey: "key",
	}, config.FetchConfig{})
	assert.Error(t, err)
}
