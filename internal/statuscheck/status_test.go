package statuscheck

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/local/podofo/internal/ghostscript"
)

type stubRunner struct {
	res ghostscript.Result
	err error
}

func (s stubRunner) Run(context.Context, string, []string) (ghostscript.Result, error) {
	return s.res, s.err
}

func found(string) (string, error)   { return "/usr/bin/gs", nil }
func missing(string) (string, error) { return "", errors.New("not found") }

func TestSummaryHealthy(t *testing.T) {
	c := New(Options{WorkRoot: t.TempDir(), LookPath: found, Runner: stubRunner{}})
	s := c.Summary(context.Background())
	assert.True(t, s.OK())
	assert.Equal(t, "Available", s.Ghostscript.Message)
	assert.Equal(t, s.Ghostscript, s.RasterBackend)
}

func TestSummaryMissingGhostscript(t *testing.T) {
	c := New(Options{WorkRoot: t.TempDir(), LookPath: missing, RasterBackend: "mupdf"})
	s := c.Summary(context.Background())
	assert.False(t, s.OK())
	assert.Equal(t, "Binary not found", s.Ghostscript.Message)
	assert.True(t, s.RasterBackend.OK)
}

func TestSummaryGhostscriptBroken(t *testing.T) {
	c := New(Options{WorkRoot: t.TempDir(), LookPath: found, Runner: stubRunner{res: ghostscript.Result{ExitCode: 2}}})
	assert.False(t, c.Summary(context.Background()).Ghostscript.OK)
}

func TestWorkspaceCreatedOnDemand(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "work")
	c := New(Options{WorkRoot: root, LookPath: found, Runner: stubRunner{}})
	assert.True(t, c.Summary(context.Background()).Workspace.OK)
	assert.DirExists(t, root)
}
