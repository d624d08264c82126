package imagerender

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/podofo/internal/pdferr"
)

// Renderer rasterizes PDF pages in-process with MuPDF. It writes the same
// page-N.png layout as the Ghostscript backend.
type Renderer struct{}

// New creates a MuPDF renderer
func New() *Renderer { return &Renderer{} }

// Rasterize renders every page of pdfPath at dpi into outDir.
func (r *Renderer) Rasterize(ctx context.Context, pdfPath, outDir string, dpi int) error {
	if dpi <= 0 {
		return pdferr.Errorf(pdferr.InvalidInput, "rasterize", "dpi must be positive, got %d", dpi)
	}
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return pdferr.Errorf(pdferr.ParseFailure, "rasterize", "failed to open PDF: %w", err)
	}
	defer doc.Close()

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		// go-fitz uses 0-based indexing
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return pdferr.Errorf(pdferr.ExternalToolFailure, "rasterize", "failed to render page %d: %w", i+1, err)
		}
		if err := writePNG(filepath.Join(outDir, fmt.Sprintf("page-%d.png", i+1)), img); err != nil {
			return pdferr.Wrap(pdferr.IOFailure, "rasterize", err)
		}
		b := img.Bounds()
		log.Debug().
			Int("page", i+1).
			Int("width", b.Dx()).
			Int("height", b.Dy()).
			Int("dpi", dpi).
			Msg("rendered page to PNG")
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
