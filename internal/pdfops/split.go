package pdfops

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/local/podofo/internal/archive"
	"github.com/local/podofo/internal/pagerange"
	"github.com/local/podofo/internal/pdferr"
	"github.com/local/podofo/internal/workspace"
)

// Split writes one PDF per group of the plan resolved from sel and returns
// them as archive entries named page-1.pdf, page-2.pdf, ... in plan order.
// A range selection that matches no page yields no entries and no error.
func (e *Executor) Split(ctx context.Context, ws *workspace.Workspace, input string, sel pagerange.Selection) ([]archive.Entry, error) {
	src, err := readContext(input)
	if err != nil {
		return nil, err
	}
	plan, err := pagerange.Resolve(src.PageCount, sel)
	if err != nil {
		return nil, err
	}

	dir, err := ws.Mkdir("split")
	if err != nil {
		return nil, pdferr.Wrap(pdferr.IOFailure, "split", err)
	}
	entries := make([]archive.Entry, 0, len(plan))
	for i, group := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := pdfcpu.ExtractPages(src, group.Pages(), false)
		if err != nil {
			return nil, pdferr.Errorf(pdferr.ParseFailure, "split", "extract pages %v: %w", group.Pages(), err)
		}
		name := pagerange.OutputName(i)
		out := filepath.Join(dir, name)
		if err := writeContext(part, out); err != nil {
			return nil, err
		}
		entries = append(entries, archive.Entry{Path: out, Name: name})
	}
	logger(ctx).Debug().
		Str("mode", string(sel.Mode)).
		Int("pages", src.PageCount).
		Int("outputs", len(entries)).
		Msg("split PDF")
	return entries, nil
}

func readContext(path string) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pdferr.Wrap(pdferr.IOFailure, "read pdf", err)
	}
	defer f.Close()
	pdfCtx, err := api.ReadValidateAndOptimize(f, newConf())
	if err != nil {
		return nil, pdferr.Errorf(pdferr.ParseFailure, "read pdf", "not a readable PDF: %w", err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, pdferr.Errorf(pdferr.ParseFailure, "read pdf", "page count: %w", err)
	}
	return pdfCtx, nil
}

func writeContext(pdfCtx *model.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pdferr.Wrap(pdferr.IOFailure, "write pdf", err)
	}
	if err := api.WriteContext(pdfCtx, f); err != nil {
		f.Close()
		return pdferr.Wrap(pdferr.IOFailure, "write pdf", err)
	}
	if err := f.Close(); err != nil {
		return pdferr.Wrap(pdferr.IOFailure, "write pdf", err)
	}
	return nil
}
