package ghostscript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/podofo/internal/pdferr"
)

type fakeRunner struct {
	tool   string
	args   []string
	result Result
	err    error
	// produce is called with the -sOutputFile value before returning.
	produce func(out string)
}

func (f *fakeRunner) Run(ctx context.Context, tool string, args []string) (Result, error) {
	f.tool, f.args = tool, args
	if f.produce != nil {
		for _, a := range args {
			if out, ok := strings.CutPrefix(a, "-sOutputFile="); ok {
				f.produce(out)
			}
		}
	}
	return f.result, f.err
}

func writeFile(t *testing.T) func(string) {
	return func(out string) { require.NoError(t, os.WriteFile(out, []byte("%PDF-1.4"), 0o644)) }
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality("")
	require.NoError(t, err)
	assert.Equal(t, QualityEbook, q)

	q, err = ParseQuality("Screen")
	require.NoError(t, err)
	assert.Equal(t, "/screen", q.Preset())

	_, err = ParseQuality("prepress")
	assert.True(t, pdferr.Is(err, pdferr.InvalidInput))
}

func TestCompressArgs(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in.pdf"), filepath.Join(dir, "out.pdf")
	fr := &fakeRunner{produce: writeFile(t)}

	g := New("gs-test", fr)
	require.NoError(t, g.Compress(context.Background(), in, out, QualityPrinter))

	assert.Equal(t, "gs-test", fr.tool)
	assert.Equal(t, []string{
		"-dSAFER", "-dNOPAUSE", "-dQUIET", "-dBATCH",
		"-sDEVICE=pdfwrite", "-dCompatibilityLevel=1.4", "-dPDFSETTINGS=/printer",
		"-sOutputFile=" + out, in,
	}, fr.args)
}

func TestRasterizeArgs(t *testing.T) {
	dir := t.TempDir()
	fr := &fakeRunner{}
	g := New("", fr)
	require.NoError(t, g.Rasterize(context.Background(), "in.pdf", dir, 72))

	assert.Equal(t, DefaultBinary(), fr.tool)
	assert.Contains(t, fr.args, "-sDEVICE=png16m")
	assert.Contains(t, fr.args, "-r72")
	assert.Contains(t, fr.args, "-sOutputFile="+filepath.Join(dir, "page-%d.png"))
	assert.Equal(t, "in.pdf", fr.args[len(fr.args)-1])

	err := g.Rasterize(context.Background(), "in.pdf", dir, 0)
	assert.True(t, pdferr.Is(err, pdferr.InvalidInput))
}

func TestNonZeroExitIsFailure(t *testing.T) {
	dir := t.TempDir()
	fr := &fakeRunner{result: Result{ExitCode: 1, Stderr: "Error: /undefined in foo"}, produce: writeFile(t)}
	err := New("gs", fr).Compress(context.Background(), "in.pdf", filepath.Join(dir, "out.pdf"), QualityEbook)
	require.Error(t, err)
	assert.True(t, pdferr.Is(err, pdferr.ExternalToolFailure))
	assert.Contains(t, err.Error(), "/undefined in foo")
}

func TestSignalExit(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")

	withOutput := &fakeRunner{result: Result{ExitCode: -1, Signaled: true}, produce: writeFile(t)}
	assert.NoError(t, New("gs", withOutput).Compress(context.Background(), "in.pdf", out, QualityEbook))

	require.NoError(t, os.Remove(out))
	noOutput := &fakeRunner{result: Result{ExitCode: -1, Signaled: true}}
	err := New("gs", noOutput).Compress(context.Background(), "in.pdf", out, QualityEbook)
	assert.True(t, pdferr.Is(err, pdferr.ExternalToolFailure))
}

func TestCleanExitWithoutOutput(t *testing.T) {
	err := New("gs", &fakeRunner{}).Compress(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "out.pdf"), QualityEbook)
	assert.True(t, pdferr.Is(err, pdferr.NoOutputProduced))
}

func TestRunnerErrors(t *testing.T) {
	missing := &fakeRunner{err: errors.New("exec: not found")}
	err := New("gs", missing).Compress(context.Background(), "in.pdf", "out.pdf", QualityEbook)
	assert.True(t, pdferr.Is(err, pdferr.ExternalToolMissing))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := &fakeRunner{err: context.Canceled}
	err = New("gs", cancelled).Compress(ctx, "in.pdf", "out.pdf", QualityEbook)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
	r := ExecRunner{}

	res, err := r.Run(context.Background(), "sh", []string{"-c", "echo boom >&2; exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Signaled)
	assert.Equal(t, "boom", res.Stderr)

	res, err = r.Run(context.Background(), "sh", []string{"-c", "kill -9 $$"})
	require.NoError(t, err)
	assert.True(t, res.Signaled)

	_, err = r.Run(context.Background(), "podofo-definitely-not-installed", nil)
	assert.True(t, pdferr.Is(err, pdferr.ExternalToolMissing))
}

func TestCapBuffer(t *testing.T) {
	b := &capBuffer{max: 4}
	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, _ = b.Write([]byte("gh"))
	assert.Equal(t, "abcd", b.String())
}
