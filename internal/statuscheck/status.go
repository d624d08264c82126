package statuscheck

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/local/podofo/internal/ghostscript"
)

// LookPathFunc resolves a binary name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Checker reports whether the external tools the operations rely on are usable.
type Checker struct {
	ghostscriptBin string
	rasterBackend  string
	workRoot       string
	lookPath       LookPathFunc
	runner         ghostscript.Runner
}

// Options configures the Checker.
type Options struct {
	GhostscriptBin string
	RasterBackend  string
	WorkRoot       string
	LookPath       LookPathFunc
	Runner         ghostscript.Runner
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Ghostscript   Status `json:"ghostscript"`
	RasterBackend Status `json:"raster_backend"`
	Workspace     Status `json:"workspace"`
}

// OK reports whether every subsystem is ready.
func (s Summary) OK() bool { return s.Ghostscript.OK && s.RasterBackend.OK && s.Workspace.OK }

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	c := &Checker{
		ghostscriptBin: opts.GhostscriptBin,
		rasterBackend:  strings.ToLower(opts.RasterBackend),
		workRoot:       opts.WorkRoot,
		lookPath:       opts.LookPath,
		runner:         opts.Runner,
	}
	if c.ghostscriptBin == "" {
		c.ghostscriptBin = ghostscript.DefaultBinary()
	}
	if c.rasterBackend == "" {
		c.rasterBackend = "ghostscript"
	}
	if c.lookPath == nil {
		c.lookPath = exec.LookPath
	}
	if c.runner == nil {
		c.runner = ghostscript.ExecRunner{}
	}
	return c
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	gs := c.checkGhostscript(ctx)
	raster := gs
	if c.rasterBackend == "mupdf" {
		raster = Status{OK: true, Message: "MuPDF (linked)"}
	}
	return Summary{
		Ghostscript:   gs,
		RasterBackend: raster,
		Workspace:     c.checkWorkspace(),
	}
}

func (c *Checker) checkGhostscript(ctx context.Context) Status {
	if _, err := c.lookPath(c.ghostscriptBin); err != nil {
		return Status{OK: false, Message: "Binary not found"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := c.runner.Run(ctx, c.ghostscriptBin, []string{"--version"})
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	if res.ExitCode != 0 {
		return Status{OK: false, Message: "version check failed"}
	}
	return Status{OK: true, Message: "Available"}
}

func (c *Checker) checkWorkspace() Status {
	if c.workRoot == "" {
		return Status{OK: false, Message: "Work dir not configured"}
	}
	if err := os.MkdirAll(c.workRoot, 0o755); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	f, err := os.CreateTemp(c.workRoot, ".probe-*")
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	name := f.Name()
	f.Close()
	_ = os.Remove(name)
	return Status{OK: true, Message: "Writable"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
