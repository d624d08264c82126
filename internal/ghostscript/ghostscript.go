// Package ghostscript drives the Ghostscript binary for PDF compression and
// page rasterization.
package ghostscript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/podofo/internal/pdferr"
)

// Quality is a pdfwrite PDFSETTINGS preset.
type Quality string

const (
	QualityScreen  Quality = "screen"
	QualityEbook   Quality = "ebook"
	QualityPrinter Quality = "printer"
)

// ParseQuality maps a form value to a Quality. Empty means ebook.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case "":
		return QualityEbook, nil
	case QualityScreen, QualityEbook, QualityPrinter:
		return q, nil
	default:
		return "", pdferr.Errorf(pdferr.InvalidInput, "parse quality", "unknown quality %q (want screen, ebook or printer)", s)
	}
}

// Preset is the value passed to -dPDFSETTINGS.
func (q Quality) Preset() string { return "/" + string(q) }

// PagePattern is the output file pattern used when rasterizing; %d is the
// 1-based page number.
const PagePattern = "page-%d.png"

// DefaultBinary is the platform's Ghostscript command name.
func DefaultBinary() string {
	if runtime.GOOS == "windows" {
		return "gswin64c.exe"
	}
	return "gs"
}

// Ghostscript runs the gs binary through a Runner.
type Ghostscript struct {
	bin     string
	runner  Runner
	timeout time.Duration
}

// Option customises a Ghostscript driver.
type Option func(*Ghostscript)

// WithTimeout bounds every invocation. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option { return func(g *Ghostscript) { g.timeout = d } }

// New returns a driver for bin. Empty bin means DefaultBinary and a nil
// runner means ExecRunner.
func New(bin string, runner Runner, opts ...Option) *Ghostscript {
	if bin == "" {
		bin = DefaultBinary()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	g := &Ghostscript{bin: bin, runner: runner}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Binary returns the configured command name.
func (g *Ghostscript) Binary() string { return g.bin }

// Compress rewrites in to out with the pdfwrite device at the given preset.
func (g *Ghostscript) Compress(ctx context.Context, in, out string, q Quality) error {
	if q == "" {
		q = QualityEbook
	}
	args := []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=" + q.Preset(),
	}
	produced := func() bool { return fileExists(out) }
	if err := g.run(ctx, "compress", args, out, in, produced); err != nil {
		return err
	}
	if !produced() {
		return pdferr.New(pdferr.NoOutputProduced, "compress", "ghostscript produced no output file")
	}
	return nil
}

// Rasterize renders every page of in as a 24-bit PNG into outDir, named
// after PagePattern. It does not check how many pages came out.
func (g *Ghostscript) Rasterize(ctx context.Context, in, outDir string, dpi int) error {
	if dpi <= 0 {
		return pdferr.Errorf(pdferr.InvalidInput, "rasterize", "dpi must be positive, got %d", dpi)
	}
	args := []string{
		"-sDEVICE=png16m",
		fmt.Sprintf("-r%d", dpi),
	}
	produced := func() bool {
		m, _ := filepath.Glob(filepath.Join(outDir, "page-*.png"))
		return len(m) > 0
	}
	return g.run(ctx, "rasterize", args, filepath.Join(outDir, PagePattern), in, produced)
}

func (g *Ghostscript) run(ctx context.Context, op string, deviceArgs []string, out, in string, produced func() bool) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(deviceArgs)+6)
	args = append(args, "-dSAFER", "-dNOPAUSE", "-dQUIET", "-dBATCH")
	args = append(args, deviceArgs...)
	args = append(args, "-sOutputFile="+out, in)

	res, err := g.runner.Run(ctx, g.bin, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pdferr.Errorf(pdferr.ExternalToolFailure, op, "ghostscript interrupted: %w", ctxErr)
		}
		if pdferr.KindOf(err) != pdferr.Unknown {
			return err
		}
		return pdferr.Wrap(pdferr.ExternalToolMissing, op, err)
	}

	l := log.With().Str("op", op).Str("tool", g.bin).Dur("duration", res.Duration).Logger()
	switch {
	case res.Signaled:
		// Killed by a signal: accept whatever it managed to write.
		if produced() {
			l.Warn().Str("stderr", res.Stderr).Msg("ghostscript terminated by signal, keeping produced output")
			return nil
		}
		return pdferr.Errorf(pdferr.ExternalToolFailure, op, "ghostscript terminated by signal: %s", orExitCode(res))
	case res.ExitCode != 0:
		return pdferr.Errorf(pdferr.ExternalToolFailure, op, "ghostscript failed: %s", orExitCode(res))
	}
	l.Debug().Msg("ghostscript finished")
	return nil
}

func orExitCode(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return fmt.Sprintf("exit code %d", res.ExitCode)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
