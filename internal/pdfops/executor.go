// Package pdfops runs the five document operations against files already
// placed in a request workspace. Every output is written into that
// workspace; nothing outlives it.
package pdfops

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/local/podofo/internal/filetype"
	"github.com/local/podofo/internal/ghostscript"
	"github.com/local/podofo/internal/pdferr"
)

// Compressor rewrites a PDF at a quality preset.
type Compressor interface {
	Compress(ctx context.Context, in, out string, q ghostscript.Quality) error
}

// Rasterizer renders every page of a PDF into outDir as page-N.png,
// N being the 1-based page number.
type Rasterizer interface {
	Rasterize(ctx context.Context, in, outDir string, dpi int) error
}

// DefaultDPI is used when the caller asks for no particular resolution.
const DefaultDPI = 150

// Options configures an Executor.
type Options struct {
	Compressor Compressor
	Rasterizer Rasterizer
	DefaultDPI int
	MaxDPI     int
}

// Executor performs document operations.
type Executor struct {
	compressor Compressor
	rasterizer Rasterizer
	detector   *filetype.Detector
	defaultDPI int
	maxDPI     int
}

// New builds an Executor. Ghostscript with os/exec is used for any backend
// left nil.
func New(opts Options) *Executor {
	gs := ghostscript.New("", nil)
	e := &Executor{
		compressor: opts.Compressor,
		rasterizer: opts.Rasterizer,
		detector:   filetype.New(),
		defaultDPI: opts.DefaultDPI,
		maxDPI:     opts.MaxDPI,
	}
	if e.compressor == nil {
		e.compressor = gs
	}
	if e.rasterizer == nil {
		e.rasterizer = gs
	}
	if e.defaultDPI <= 0 {
		e.defaultDPI = DefaultDPI
	}
	return e
}

// pdfcpu mutates its configuration per command, so each call gets a fresh one.
func newConf() *model.Configuration { return model.NewDefaultConfiguration() }

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, pdferr.Wrap(pdferr.IOFailure, "stat", err)
	}
	return info.Size(), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func logger(ctx context.Context) *zerolog.Logger { return zerolog.Ctx(ctx) }
