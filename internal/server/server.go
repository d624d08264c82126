// Package server exposes the PDF operations over HTTP: multipart uploads in,
// a PDF download or a streamed ZIP out.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/local/podofo/internal/metrics"
	"github.com/local/podofo/internal/pdfops"
	"github.com/local/podofo/internal/statuscheck"
)

// Options configures the HTTP layer.
type Options struct {
	WorkRoot       string
	MaxFileSize    int64
	MaxFiles       int
	AllowedOrigins []string
	// Production disables the localhost CORS allowance.
	Production bool
}

// Server routes requests to the document operations.
type Server struct {
	exec   *pdfops.Executor
	status *statuscheck.Checker
	opts   Options
	now    func() time.Time
}

// New builds a Server. status may be nil, in which case /status is not served.
func New(exec *pdfops.Executor, status *statuscheck.Checker, opts Options) *Server {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 100 << 20
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 50
	}
	return &Server{exec: exec, status: status, opts: opts, now: time.Now}
}

// RegisterRoutes attaches all endpoints to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/pdf/merge", s.handleMerge)
	mux.HandleFunc("POST /api/pdf/split", s.handleSplit)
	mux.HandleFunc("POST /api/pdf/compress", s.handleCompress)
	mux.HandleFunc("POST /api/pdf/pdf-to-images", s.handlePDFToImages)
	mux.HandleFunc("POST /api/pdf/images-to-pdf", s.handleImagesToPDF)

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.status != nil {
		mux.HandleFunc("GET /status", s.handleStatus)
	}
	mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns the routed mux wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return Chain(mux, RequestLogger, Recover, CORS(s.opts.AllowedOrigins, s.opts.Production))
}

// maxBody bounds a whole request: every file at its limit plus form overhead.
func (s *Server) maxBody() int64 {
	return s.opts.MaxFileSize*int64(s.opts.MaxFiles) + 10<<20
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, s.status.Summary(ctx))
}
