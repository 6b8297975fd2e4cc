package pdftext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextMissingFile(t *testing.T) {
	e := NewExtractor(nil)
	_, err := e.ExtractText(filepath.Join(t.TempDir(), "no-such.pdf"))
	assert.Error(t, err)
}

func TestExtractTextNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o600))

	e := NewExtractor(nil)
	_, err := e.ExtractText(path)
	assert.Error(t, err)
}

func TestExtractTextEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	e := NewExtractor(nil)
	_, err := e.ExtractText(path)
	assert.Error(t, err)
}
