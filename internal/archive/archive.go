// Package archive streams files into a ZIP written straight to the client.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"net/http"
	"os"
	"slices"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"

	"github.com/local/podofo/internal/pdferr"
)

// Entry maps a file on disk to its name inside the archive.
type Entry struct {
	Path string
	Name string
}

// Stats summarises a streamed archive.
type Stats struct {
	Entries int
	Skipped int
	// Bytes is how many archive bytes reached the destination writer.
	Bytes int64
}

// Entries adapts a slice to the lazy form Stream consumes.
func Entries(list []Entry) iter.Seq[Entry] { return slices.Values(list) }

// Stream writes a ZIP of entries to w, compressing each file with Deflate at
// best compression. Files are read one at a time and never held in memory
// whole. Entries whose file no longer exists are skipped.
func Stream(ctx context.Context, w io.Writer, entries iter.Seq[Entry]) (Stats, error) {
	cw := &countWriter{w: w}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	var st Stats
	for e := range entries {
		if err := ctx.Err(); err != nil {
			st.Bytes = cw.n
			return st, err
		}
		ok, err := addFile(zw, e)
		if err != nil {
			st.Bytes = cw.n
			return st, err
		}
		if !ok {
			st.Skipped++
			log.Debug().Str("path", e.Path).Msg("archive entry missing, skipped")
			continue
		}
		st.Entries++
	}
	err := zw.Close()
	st.Bytes = cw.n
	if err != nil {
		return st, pdferr.Wrap(pdferr.IOFailure, "archive", err)
	}
	return st, nil
}

func addFile(zw *zip.Writer, e Entry) (bool, error) {
	f, err := os.Open(e.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, pdferr.Wrap(pdferr.IOFailure, "archive", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, pdferr.Wrap(pdferr.IOFailure, "archive", err)
	}
	hdr := &zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	hdr.SetMode(0o644)
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return false, pdferr.Wrap(pdferr.IOFailure, "archive", err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return false, pdferr.Errorf(pdferr.IOFailure, "archive", "add %s: %w", e.Name, err)
	}
	return true, nil
}

// Serve streams entries to an HTTP response as an attachment named
// filename. Headers are set before the first archive byte. cleanup runs
// when Serve returns, whatever the outcome.
func Serve(ctx context.Context, w http.ResponseWriter, filename string, entries iter.Seq[Entry], cleanup func()) (Stats, error) {
	if cleanup != nil {
		defer cleanup()
	}
	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", Attachment(filename))
	st, err := Stream(ctx, w, entries)
	if err != nil {
		return st, fmt.Errorf("stream %s: %w", filename, err)
	}
	return st, nil
}

// Attachment formats a Content-Disposition attachment header value.
func Attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
