package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/podofo/internal/ghostscript"
	"github.com/local/podofo/internal/pdfops"
	"github.com/local/podofo/internal/pdftest"
)

type truncatingCompressor struct{}

func (truncatingCompressor) Compress(_ context.Context, in, out string, _ ghostscript.Quality) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data[:len(data)/2], 0o644)
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	app.newExecutor = func() *pdfops.Executor {
		return pdfops.New(pdfops.Options{Compressor: truncatingCompressor{}})
	}
	work := t.TempDir()
	return app, &stdout, work
}

func run(t *testing.T, app *App, work string, args ...string) error {
	t.Helper()
	return app.ExecuteWithArgs(context.Background(), append([]string{"--work-dir", work}, args...))
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestApp_Version(t *testing.T) {
	app, stdout, work := newTestApp(t)
	require.NoError(t, run(t, app, work, "version"))
	assert.Contains(t, stdout.String(), "podofo version dev")
}

func TestApp_Help(t *testing.T) {
	app, stdout, work := newTestApp(t)
	require.NoError(t, run(t, app, work, "--help"))
	out := stdout.String()
	for _, cmd := range []string{"merge", "split", "compress", "to-images", "from-images"} {
		assert.Contains(t, out, cmd)
	}
}

func TestApp_Merge(t *testing.T) {
	app, stdout, work := newTestApp(t)
	dir := t.TempDir()
	a := pdftest.PDF(t, dir, "a.pdf", 100, 110)
	b := pdftest.PDF(t, dir, "b.pdf", 120)
	out := filepath.Join(dir, "out.pdf")

	require.NoError(t, run(t, app, work, "merge", "-o", out, a, b))
	assert.Equal(t, []int{100, 110, 120}, pdftest.Widths(t, out))
	assert.Contains(t, stdout.String(), "wrote "+out)
	pdftest.AssertEmptyDir(t, work)
}

func TestApp_MergeRequiresInput(t *testing.T) {
	app, _, work := newTestApp(t)
	assert.Error(t, run(t, app, work, "merge"))
}

func TestApp_SplitRange(t *testing.T) {
	app, _, work := newTestApp(t)
	dir := t.TempDir()
	in := pdftest.PDF(t, dir, "in.pdf", 100, 110, 120, 130)
	out := filepath.Join(dir, "parts.zip")

	require.NoError(t, run(t, app, work, "split", "--mode", "range", "--ranges", "3-4, 1", "-o", out, in))
	assert.Equal(t, []string{"page-1.pdf", "page-2.pdf", "page-3.pdf"}, zipNames(t, out))
	pdftest.AssertEmptyDir(t, work)
}

func TestApp_SplitFixed(t *testing.T) {
	app, _, work := newTestApp(t)
	dir := t.TempDir()
	in := pdftest.PDF(t, dir, "in.pdf", 100, 110, 120)
	out := filepath.Join(dir, "parts.zip")

	require.NoError(t, run(t, app, work, "split", "--mode", "fixed", "--size", "2", "-o", out, in))
	assert.Equal(t, []string{"page-1.pdf", "page-2.pdf"}, zipNames(t, out))
}

func TestApp_SplitUnknownMode(t *testing.T) {
	app, _, work := newTestApp(t)
	dir := t.TempDir()
	in := pdftest.PDF(t, dir, "in.pdf", 100)
	out := filepath.Join(dir, "parts.zip")

	assert.Error(t, run(t, app, work, "split", "--mode", "odd", "-o", out, in))
	assert.NoFileExists(t, out)
}

func TestApp_Compress(t *testing.T) {
	app, stdout, work := newTestApp(t)
	dir := t.TempDir()
	in := pdftest.PDF(t, dir, "in.pdf", 100)
	out := filepath.Join(dir, "small.pdf")

	require.NoError(t, run(t, app, work, "compress", "--quality", "screen", "-o", out, in))
	assert.FileExists(t, out)
	assert.Contains(t, stdout.String(), "bytes")
}

func TestApp_CompressBadQuality(t *testing.T) {
	app, _, work := newTestApp(t)
	dir := t.TempDir()
	in := pdftest.PDF(t, dir, "in.pdf", 100)
	assert.Error(t, run(t, app, work, "compress", "--quality", "best", "-o", filepath.Join(dir, "x.pdf"), in))
}

func TestApp_FromImages(t *testing.T) {
	app, _, work := newTestApp(t)
	dir := t.TempDir()
	p := pdftest.WriteFile(t, dir, "a.png", pdftest.PNG(t, 200, 100))
	j := pdftest.WriteFile(t, dir, "b.jpg", pdftest.JPEG(t, 300, 150))
	out := filepath.Join(dir, "images.pdf")

	require.NoError(t, run(t, app, work, "from-images", "-o", out, p, j))
	assert.Equal(t, []int{200, 300}, pdftest.Widths(t, out))
	pdftest.AssertEmptyDir(t, work)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"1-3", "5"}, splitList(" 1-3 ,,5 "))
	assert.Nil(t, splitList(""))
}
