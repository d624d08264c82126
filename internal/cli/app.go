// Package cli runs the document operations locally from the command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/local/podofo/internal/ghostscript"
	"github.com/local/podofo/internal/imagerender"
	"github.com/local/podofo/internal/logger"
	"github.com/local/podofo/internal/pdfops"
	"github.com/local/podofo/internal/workspace"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	gsBinary string
	backend  string
	workDir  string
	logLevel string

	// newExecutor is replaced in tests.
	newExecutor func() *pdfops.Executor
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	app.newExecutor = app.defaultExecutor

	app.root = &cobra.Command{
		Use:   "podofo",
		Short: "Merge, split, compress and convert PDF files",
		Long: `podofo runs the same document operations as the podofo HTTP service
against local files. Compression and page rendering need Ghostscript on PATH
unless --backend=mupdf is used for rendering.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Options{Level: app.logLevel, Pretty: true, Console: app.stderr, Service: "podofo-cli"})
		},
	}
	pf := app.root.PersistentFlags()
	pf.StringVar(&app.gsBinary, "gs", "", "Ghostscript binary (default gs, gswin64c.exe on Windows)")
	pf.StringVar(&app.backend, "backend", "ghostscript", "page rendering backend: ghostscript or mupdf")
	pf.StringVar(&app.workDir, "work-dir", filepath.Join(os.TempDir(), "podofo-cli"), "scratch directory")
	pf.StringVar(&app.logLevel, "log-level", "warn", "log level")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newMergeCmd(),
		app.newSplitCmd(),
		app.newCompressCmd(),
		app.newToImagesCmd(),
		app.newFromImagesCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer logger.Close()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) defaultExecutor() *pdfops.Executor {
	gs := ghostscript.New(a.gsBinary, nil)
	var raster pdfops.Rasterizer = gs
	if a.backend == "mupdf" {
		raster = imagerender.New()
	}
	return pdfops.New(pdfops.Options{Compressor: gs, Rasterizer: raster})
}

// withWorkspace runs fn in a fresh workspace that is removed afterwards.
func (a *App) withWorkspace(fn func(ws *workspace.Workspace) error) error {
	ws, err := workspace.New(a.workDir)
	if err != nil {
		return err
	}
	defer ws.Cleanup()
	return fn(ws)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "podofo version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
