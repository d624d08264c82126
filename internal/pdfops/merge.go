package pdfops

import (
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/local/podofo/internal/pdferr"
	"github.com/local/podofo/internal/workspace"
)

// MergedName is the file name of a merge result inside the workspace.
const MergedName = "merged.pdf"

// Merge concatenates inputs, in order, into a single PDF and returns its path.
func (e *Executor) Merge(ctx context.Context, ws *workspace.Workspace, inputs []string) (string, error) {
	if len(inputs) == 0 {
		return "", pdferr.New(pdferr.InvalidInput, "merge", "no PDF files provided")
	}
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := api.ValidateFile(in, newConf()); err != nil {
			return "", pdferr.Errorf(pdferr.ParseFailure, "merge", "file %d is not a readable PDF: %w", i+1, err)
		}
	}

	out := ws.Path(MergedName)
	if len(inputs) == 1 {
		if err := copyFile(inputs[0], out); err != nil {
			return "", pdferr.Wrap(pdferr.IOFailure, "merge", err)
		}
		return out, nil
	}
	if err := api.MergeCreateFile(inputs, out, false, newConf()); err != nil {
		return "", pdferr.Errorf(pdferr.ParseFailure, "merge", "merge failed: %w", err)
	}
	logger(ctx).Debug().Int("inputs", len(inputs)).Str("out", out).Msg("merged PDFs")
	return out, nil
}
