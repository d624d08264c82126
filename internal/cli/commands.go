package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/local/podofo/internal/archive"
	"github.com/local/podofo/internal/ghostscript"
	"github.com/local/podofo/internal/pagerange"
	"github.com/local/podofo/internal/workspace"
)

func (a *App) newMergeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "merge <file.pdf>...",
		Short: "Concatenate PDFs in the order given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(func(ws *workspace.Workspace) error {
				res, err := a.newExecutor().Merge(cmd.Context(), ws, args)
				if err != nil {
					return err
				}
				return a.deliverFile(res, out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "merged.pdf", "output file")
	return cmd
}

func (a *App) newSplitCmd() *cobra.Command {
	var (
		out    string
		mode   string
		ranges string
		size   int
	)
	cmd := &cobra.Command{
		Use:   "split <file.pdf>",
		Short: "Split a PDF into a ZIP of smaller PDFs",
		Example: `  podofo split in.pdf
  podofo split --mode range --ranges 1-3,5 in.pdf
  podofo split --mode fixed --size 2 -o parts.zip in.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pagerange.ParseMode(mode)
			if err != nil {
				return err
			}
			sel := pagerange.Selection{Mode: m, ChunkSize: size, Tokens: splitList(ranges)}
			return a.withWorkspace(func(ws *workspace.Workspace) error {
				entries, err := a.newExecutor().Split(cmd.Context(), ws, args[0], sel)
				if err != nil {
					return err
				}
				return a.deliverZip(cmd.Context(), entries, out)
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "output", "o", "split-pages.zip", "output ZIP file")
	f.StringVar(&mode, "mode", "all", "split mode: all, range or fixed")
	f.StringVar(&ranges, "ranges", "", "comma separated pages and ranges for --mode range, e.g. 1-3,5")
	f.IntVar(&size, "size", 1, "pages per output for --mode fixed")
	return cmd
}

func (a *App) newCompressCmd() *cobra.Command {
	var (
		out     string
		quality string
	)
	cmd := &cobra.Command{
		Use:   "compress <file.pdf>",
		Short: "Compress a PDF with Ghostscript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := ghostscript.ParseQuality(quality)
			if err != nil {
				return err
			}
			return a.withWorkspace(func(ws *workspace.Workspace) error {
				res, err := a.newExecutor().Compress(cmd.Context(), ws, args[0], q)
				if err != nil {
					return err
				}
				if err := a.deliverFile(res.Path, out); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%d -> %d bytes\n", res.OriginalSize, res.CompressedSize)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "compressed.pdf", "output file")
	cmd.Flags().StringVar(&quality, "quality", "ebook", "preset: screen, ebook or printer")
	return cmd
}

func (a *App) newToImagesCmd() *cobra.Command {
	var (
		out string
		dpi string
	)
	cmd := &cobra.Command{
		Use:   "to-images <file.pdf>",
		Short: "Render every page to PNG and write a ZIP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exec := a.newExecutor()
			d, err := exec.ResolveDPI(dpi)
			if err != nil {
				return err
			}
			return a.withWorkspace(func(ws *workspace.Workspace) error {
				entries, err := exec.PDFToImages(cmd.Context(), ws, args[0], d)
				if err != nil {
					return err
				}
				return a.deliverZip(cmd.Context(), entries, out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "pdf-images.zip", "output ZIP file")
	cmd.Flags().StringVar(&dpi, "dpi", "150", "render resolution")
	return cmd
}

func (a *App) newFromImagesCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "from-images <image>...",
		Short: "Build a PDF with one page per image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(func(ws *workspace.Workspace) error {
				res, err := a.newExecutor().ImagesToPDF(cmd.Context(), ws, args)
				if err != nil {
					return err
				}
				return a.deliverFile(res, out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "images.pdf", "output file")
	return cmd
}

func (a *App) deliverFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s\n", dst)
	return nil
}

func (a *App) deliverZip(ctx context.Context, entries []archive.Entry, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	st, err := archive.Stream(ctx, f, archive.Entries(entries))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s (%d files)\n", dst, st.Entries)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
