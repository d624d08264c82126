package pdfops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/local/podofo/internal/archive"
	"github.com/local/podofo/internal/filetype"
	"github.com/local/podofo/internal/imageconv"
	"github.com/local/podofo/internal/pagerange"
	"github.com/local/podofo/internal/pdferr"
	"github.com/local/podofo/internal/workspace"
)

// ImagesPDFName is the file name of an images-to-PDF result inside the workspace.
const ImagesPDFName = "images.pdf"

var pageImage = regexp.MustCompile(`^page-(\d+)\.png$`)

// ResolveDPI turns a form value into a rendering resolution, reading its
// leading digits. Missing, non-numeric and non-positive values fall back to
// the default; values above the configured maximum are rejected.
func (e *Executor) ResolveDPI(raw string) (int, error) {
	dpi, ok := pagerange.LeadingInt(raw)
	if !ok || dpi <= 0 {
		return e.defaultDPI, nil
	}
	if e.maxDPI > 0 && dpi > e.maxDPI {
		return 0, pdferr.Errorf(pdferr.InvalidInput, "resolve dpi", "dpi %d exceeds the maximum of %d", dpi, e.maxDPI)
	}
	return dpi, nil
}

// PDFToImages renders every page of input as PNG at dpi and returns the
// images in ascending page order.
func (e *Executor) PDFToImages(ctx context.Context, ws *workspace.Workspace, input string, dpi int) ([]archive.Entry, error) {
	if err := e.requirePDF(input, "pdf to images"); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = e.defaultDPI
	}
	dir, err := ws.Mkdir("images")
	if err != nil {
		return nil, pdferr.Wrap(pdferr.IOFailure, "pdf to images", err)
	}
	if err := e.rasterizer.Rasterize(ctx, input, dir, dpi); err != nil {
		return nil, err
	}
	entries, err := collectPages(dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, pdferr.New(pdferr.NoOutputProduced, "pdf to images", "no images were created")
	}
	logger(ctx).Debug().Int("dpi", dpi).Int("images", len(entries)).Msg("rendered PDF pages")
	return entries, nil
}

// collectPages lists page-N.png files in dir sorted by N.
func collectPages(dir string) ([]archive.Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, pdferr.Wrap(pdferr.IOFailure, "collect images", err)
	}
	type page struct {
		n    int
		name string
	}
	var pages []page
	for _, f := range files {
		m := pageImage.FindStringSubmatch(f.Name())
		if m == nil || f.IsDir() {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, name: f.Name()})
	}
	slices.SortFunc(pages, func(a, b page) int { return a.n - b.n })

	entries := make([]archive.Entry, len(pages))
	for i, p := range pages {
		entries[i] = archive.Entry{Path: filepath.Join(dir, p.name), Name: p.name}
	}
	return entries, nil
}

// ImagesToPDF places each image, in order, on its own page sized to the
// image and returns the PDF path. JPEG and PNG are embedded unchanged; other
// decodable formats are converted to PNG first.
func (e *Executor) ImagesToPDF(ctx context.Context, ws *workspace.Workspace, inputs []string) (string, error) {
	if len(inputs) == 0 {
		return "", pdferr.New(pdferr.InvalidInput, "images to pdf", "no images provided")
	}
	dir, err := ws.Mkdir("pages")
	if err != nil {
		return "", pdferr.Wrap(pdferr.IOFailure, "images to pdf", err)
	}

	prepared := make([]string, 0, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p, err := e.prepareImage(in, dir, i)
		if err != nil {
			return "", err
		}
		prepared = append(prepared, p)
	}

	out := ws.Path(ImagesPDFName)
	if err := api.ImportImagesFile(prepared, out, pdfcpu.DefaultImportConfig(), newConf()); err != nil {
		return "", pdferr.Errorf(pdferr.ParseFailure, "images to pdf", "embed images: %w", err)
	}
	logger(ctx).Debug().Int("images", len(prepared)).Msg("built PDF from images")
	return out, nil
}

// prepareImage copies or converts input i into dir under a name whose
// extension matches its real content.
func (e *Executor) prepareImage(in, dir string, i int) (string, error) {
	info, err := e.detector.Detect(in)
	if err != nil {
		return "", pdferr.Wrap(pdferr.IOFailure, "images to pdf", err)
	}
	base := filepath.Join(dir, fmt.Sprintf("image-%03d", i+1))
	switch info.Kind {
	case filetype.JPEG, filetype.PNG:
		w, h, err := imageconv.Size(in)
		if err != nil || w == 0 || h == 0 {
			return "", pdferr.Errorf(pdferr.ParseFailure, "images to pdf", "file %d is not a readable %s image", i+1, info.MIMEType)
		}
		dst := base + ".png"
		if info.Kind == filetype.JPEG {
			dst = base + ".jpg"
		}
		return dst, wrapIO(copyFile(in, dst))
	case filetype.RasterImage:
		if _, err := imageconv.ToPNG(in, base+".png"); err != nil {
			return "", pdferr.Errorf(pdferr.ParseFailure, "images to pdf", "file %d could not be decoded: %w", i+1, err)
		}
		return base + ".png", nil
	default:
		return "", pdferr.Errorf(pdferr.ParseFailure, "images to pdf", "file %d is not a supported image (%s)", i+1, info.MIMEType)
	}
}

func (e *Executor) requirePDF(path, op string) error {
	info, err := e.detector.Detect(path)
	if err != nil {
		return pdferr.Wrap(pdferr.IOFailure, op, err)
	}
	if info.Kind != filetype.PDF {
		return pdferr.Errorf(pdferr.ParseFailure, op, "file is not a PDF (%s)", info.MIMEType)
	}
	return nil
}

func wrapIO(err error) error { return pdferr.Wrap(pdferr.IOFailure, "images to pdf", err) }
