package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Photosynthesis</title>
  <style>body { color: red; }</style>
  <script>console.log("tracking");</script>
</head>
<body>
  <nav>Home | About | Contact</nav>
  <main>
    <h1>Photosynthesis</h1>
    <p>Plants convert   light energy
       into chemical energy.</p>
  </main>
  <footer>Copyright 2026</footer>
</body>
</html>`

func testScraper(t *testing.T, handler http.Handler) (*PageScraper, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPageScraper(logger, resty.New()), srv.URL
}

func TestScrape(t *testing.T) {
	t.Run("extracts content text and drops chrome", func(t *testing.T) {
		s, url := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(samplePage))
		}))

		text, err := s.Scrape(context.Background(), url)

		require.NoError(t, err)
		assert.Equal(t, "Photosynthesis Plants convert light energy into chemical energy.", text)
		assert.NotContains(t, text, "tracking")
		assert.NotContains(t, text, "Copyright")
	})

	t.Run("error status is reported", func(t *testing.T) {
		s, url := testScraper(t, http.NotFoundHandler())

		_, err := s.Scrape(context.Background(), url+"/gone")

		assert.ErrorContains(t, err, "status 404")
	})

	t.Run("unreachable host is reported", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		s := NewPageScraper(logger, resty.New())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Scrape(ctx, "http://192.0.2.1/page")

		assert.Error(t, err)
	})

	t.Run("empty body yields empty text", func(t *testing.T) {
		s, url := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		text, err := s.Scrape(context.Background(), url)

		require.NoError(t, err)
		assert.Empty(t, text)
	})
}
