package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/podofo/internal/archive"
	"github.com/local/podofo/internal/ghostscript"
	"github.com/local/podofo/internal/metrics"
	"github.com/local/podofo/internal/pagerange"
	"github.com/local/podofo/internal/pdferr"
	"github.com/local/podofo/internal/workspace"
)

// result is what an operation hands back for delivery: either one file or
// a list of archive entries.
type result struct {
	file    string
	entries []archive.Entry
	zip     bool
	name    string
	header  http.Header
}

type operation func(ctx context.Context, ws *workspace.Workspace, up *upload) (result, error)

var (
	multiFileFields  = []string{"files", "files[]"}
	singleFileFields = []string{"file"}
)

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "merge", multiFileFields, func(ctx context.Context, ws *workspace.Workspace, up *upload) (result, error) {
		out, err := s.exec.Merge(ctx, ws, up.paths())
		if err != nil {
			return result{}, err
		}
		return result{file: out, name: "merged.pdf"}, nil
	})
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "split", singleFileFields, func(ctx context.Context, ws *workspace.Workspace, up *upload) (result, error) {
		in, err := single(up)
		if err != nil {
			return result{}, err
		}
		mode, err := pagerange.ParseMode(up.value("mode"))
		if err != nil {
			return result{}, err
		}
		sel := pagerange.Selection{Mode: mode, ChunkSize: pagerange.ParseChunkSize(up.value("fixedSize"))}
		if mode == pagerange.ModeRange {
			if sel.Tokens, err = pagerange.ParseTokens(up.value("ranges")); err != nil {
				return result{}, err
			}
		}
		entries, err := s.exec.Split(ctx, ws, in, sel)
		if err != nil {
			return result{}, err
		}
		return result{entries: entries, zip: true, name: "split-pages.zip"}, nil
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "compress", singleFileFields, func(ctx context.Context, ws *workspace.Workspace, up *upload) (result, error) {
		in, err := single(up)
		if err != nil {
			return result{}, err
		}
		q, err := ghostscript.ParseQuality(up.value("quality"))
		if err != nil {
			return result{}, err
		}
		res, err := s.exec.Compress(ctx, ws, in, q)
		if err != nil {
			return result{}, err
		}
		h := http.Header{}
		h.Set("X-Original-Size", strconv.FormatInt(res.OriginalSize, 10))
		h.Set("X-Compressed-Size", strconv.FormatInt(res.CompressedSize, 10))
		return result{file: res.Path, name: "compressed.pdf", header: h}, nil
	})
}

func (s *Server) handlePDFToImages(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "pdf-to-images", singleFileFields, func(ctx context.Context, ws *workspace.Workspace, up *upload) (result, error) {
		in, err := single(up)
		if err != nil {
			return result{}, err
		}
		dpi, err := s.exec.ResolveDPI(up.value("dpi"))
		if err != nil {
			return result{}, err
		}
		entries, err := s.exec.PDFToImages(ctx, ws, in, dpi)
		if err != nil {
			return result{}, err
		}
		return result{entries: entries, zip: true, name: "pdf-images.zip"}, nil
	})
}

func (s *Server) handleImagesToPDF(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "images-to-pdf", multiFileFields, func(ctx context.Context, ws *workspace.Workspace, up *upload) (result, error) {
		out, err := s.exec.ImagesToPDF(ctx, ws, up.paths())
		if err != nil {
			return result{}, err
		}
		return result{file: out, name: "images.pdf"}, nil
	})
}

func single(up *upload) (string, error) {
	switch len(up.files) {
	case 0:
		return "", pdferr.New(pdferr.InvalidInput, "upload", "no file uploaded")
	case 1:
		return up.files[0].Path, nil
	default:
		return "", pdferr.Errorf(pdferr.InvalidInput, "upload", "expected one file, got %d", len(up.files))
	}
}

// run owns the request workspace: it parses the upload into it, runs op,
// delivers the result and removes the workspace on every path. On failure
// the workspace is gone before the error response is written.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op string, fileFields []string, fn operation) {
	start := time.Now()
	metrics.RequestStarted()
	defer metrics.RequestFinished()

	l := zerolog.Ctx(r.Context()).With().Str("operation", op).Logger()
	ws, err := workspace.New(s.opts.WorkRoot)
	if err != nil {
		s.fail(w, l, op, start, pdferr.Wrap(pdferr.IOFailure, op, err))
		return
	}
	defer ws.Cleanup()
	l = l.With().Str("workspace", ws.ID()).Logger()
	ctx := l.WithContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody())
	up, err := s.readUpload(r, ws, fileFields)
	if err != nil {
		ws.Cleanup()
		s.fail(w, l, op, start, err)
		return
	}
	metrics.AddUploadBytes(op, up.bytes)
	l.Debug().Int("files", len(up.files)).Int64("bytes", up.bytes).Msg("upload received")

	res, err := fn(ctx, ws, up)
	if err != nil {
		ws.Cleanup()
		s.fail(w, l, op, start, err)
		return
	}

	if res.zip {
		st, err := archive.Serve(ctx, w, res.name, archive.Entries(res.entries), ws.Cleanup)
		metrics.AddArchiveEntries(op, st.Entries)
		if err != nil {
			if st.Bytes == 0 {
				w.Header().Del("Content-Disposition")
				s.fail(w, l, op, start, err)
				return
			}
			metrics.ObserveOperation(op, "aborted", time.Since(start))
			l.Warn().Err(err).Int64("bytes", st.Bytes).Msg("archive stream aborted")
			panic(http.ErrAbortHandler)
		}
		metrics.ObserveOperation(op, "success", time.Since(start))
		l.Info().Int("entries", st.Entries).Int("skipped", st.Skipped).Dur("duration", time.Since(start)).Msg("archive sent")
		return
	}

	n, err := sendFile(w, res.file, res.name, res.header)
	ws.Cleanup()
	if err != nil {
		if n < 0 {
			s.fail(w, l, op, start, pdferr.Wrap(pdferr.IOFailure, op, err))
			return
		}
		metrics.ObserveOperation(op, "aborted", time.Since(start))
		l.Warn().Err(err).Int64("bytes", n).Msg("download interrupted")
		return
	}
	metrics.ObserveOperation(op, "success", time.Since(start))
	l.Info().Int64("bytes", n).Dur("duration", time.Since(start)).Msg("file sent")
}

// sendFile copies path to w as a PDF attachment. It returns -1 when the
// file could not be opened and nothing was written.
func sendFile(w http.ResponseWriter, path, name string, extra http.Header) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return -1, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return -1, err
	}

	h := w.Header()
	for k, v := range extra {
		h[k] = v
	}
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", archive.Attachment(name))
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, f)
	if err != nil {
		return n, fmt.Errorf("send %s: %w", name, err)
	}
	return n, nil
}

func (s *Server) fail(w http.ResponseWriter, l zerolog.Logger, op string, start time.Time, err error) {
	status := statusFor(err)
	metrics.ObserveOperation(op, resultLabel(err), time.Since(start))
	ev := l.Warn()
	if status >= http.StatusInternalServerError {
		ev = l.Error()
	}
	ev.Err(err).Int("status", status).Msg("operation failed")
	writeError(w, status, err)
}
