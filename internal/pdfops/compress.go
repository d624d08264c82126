package pdfops

import (
	"context"

	"github.com/local/podofo/internal/ghostscript"
	"github.com/local/podofo/internal/metrics"
	"github.com/local/podofo/internal/workspace"
)

// CompressedName is the file name of a compression result inside the workspace.
const CompressedName = "compressed.pdf"

// CompressResult carries the compressed file and both sizes in bytes.
type CompressResult struct {
	Path           string
	OriginalSize   int64
	CompressedSize int64
}

// Compress rewrites input with the given quality preset.
func (e *Executor) Compress(ctx context.Context, ws *workspace.Workspace, input string, q ghostscript.Quality) (CompressResult, error) {
	if err := e.requirePDF(input, "compress"); err != nil {
		return CompressResult{}, err
	}
	original, err := fileSize(input)
	if err != nil {
		return CompressResult{}, err
	}
	out := ws.Path(CompressedName)
	if err := e.compressor.Compress(ctx, input, out, q); err != nil {
		return CompressResult{}, err
	}
	compressed, err := fileSize(out)
	if err != nil {
		return CompressResult{}, err
	}
	metrics.ObserveCompression(original, compressed)
	logger(ctx).Info().
		Str("quality", string(q)).
		Int64("original_size", original).
		Int64("compressed_size", compressed).
		Msg("compressed PDF")
	return CompressResult{Path: out, OriginalSize: original, CompressedSize: compressed}, nil
}
