package archive

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string)
	var order []string
	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(b)
		order = append(order, f.Name)
	}
	out["__order"] = ""
	for _, n := range order {
		out["__order"] += n + ";"
	}
	return out
}

func TestStreamSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", "first")
	c := writeFixture(t, dir, "c.pdf", "third")

	var buf bytes.Buffer
	st, err := Stream(context.Background(), &buf, Entries([]Entry{
		{Path: a, Name: "page-1.pdf"},
		{Path: filepath.Join(dir, "gone.pdf"), Name: "page-2.pdf"},
		{Path: c, Name: "page-3.pdf"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, int64(buf.Len()), st.Bytes)

	files := readZip(t, buf.Bytes())
	assert.Equal(t, "first", files["page-1.pdf"])
	assert.Equal(t, "third", files["page-3.pdf"])
	assert.Equal(t, "page-1.pdf;page-3.pdf;", files["__order"])
}

func TestStreamEmpty(t *testing.T) {
	var buf bytes.Buffer
	st, err := Stream(context.Background(), &buf, Entries(nil))
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
	files := readZip(t, buf.Bytes())
	assert.Equal(t, "", files["__order"])
}

func TestStreamCancelled(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", "first")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Stream(ctx, io.Discard, Entries([]Entry{{Path: a, Name: "a.pdf"}}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServeHeadersAndCleanup(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "page-1.png", "png-bytes")

	rec := httptest.NewRecorder()
	calls := 0
	st, err := Serve(context.Background(), rec, "pdf-images.zip", Entries([]Entry{{Path: a, Name: "page-1.png"}}), func() { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="pdf-images.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "png-bytes", readZip(t, rec.Body.Bytes())["page-1.png"])
}

type failWriter struct{}

func (failWriter) Header() http.Header { return http.Header{} }

func (failWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func (failWriter) WriteHeader(int) {}

func TestServeCleanupOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	big := bytes.Repeat([]byte("0123456789"), 1<<16)
	p := filepath.Join(dir, "big.bin")
	require.NoError(t, os.WriteFile(p, big, 0o644))

	calls := 0
	_, err := Serve(context.Background(), failWriter{}, "x.zip", Entries([]Entry{{Path: p, Name: "big.bin"}}), func() { calls++ })
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
