package server

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteScreenshotPDF(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, size := range [][2]int{{64, 48}, {30, 90}} {
		path := filepath.Join(dir, "jack_"+string(rune('1'+i))+".png")
		require.NoError(t, os.WriteFile(path, pngBytes(t, size[0], size[1]), 0644))
		paths = append(paths, path)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteScreenshotPDF(&buf, "jack", paths))
	out := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, out, "/MediaBox [0 0 64.00 48.00]")
	assert.Contains(t, out, "/MediaBox [0 0 30.00 90.00]")
}

func TestWriteScreenshotPDFErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteScreenshotPDF(&buf, "jack", nil))

	missing := filepath.Join(t.TempDir(), "jack_1.png")
	assert.Error(t, WriteScreenshotPDF(&buf, "jack", []string{missing}))
}
