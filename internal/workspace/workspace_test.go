package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndCleanup(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	require.NoError(t, err)

	_, err = uuid.Parse(ws.ID())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ws.ID()), ws.Dir())

	sub, err := ws.Mkdir("images")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "page-1.png"), []byte("x"), 0o644))
	assert.Equal(t, filepath.Join(ws.Dir(), "images", "page-1.png"), ws.Path("images", "page-1.png"))

	ws.Cleanup()
	ws.Cleanup()
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestWorkspacesAreDistinct(t *testing.T) {
	root := t.TempDir()
	a, err := New(root)
	require.NoError(t, err)
	b, err := New(root)
	require.NoError(t, err)
	assert.NotEqual(t, a.Dir(), b.Dir())
}

func TestSweepStale(t *testing.T) {
	root := t.TempDir()

	// left behind by a process that died before cleaning up
	old := filepath.Join(root, uuid.NewString())
	require.NoError(t, os.Mkdir(old, 0o755))
	fresh, err := New(root)
	require.NoError(t, err)
	foreign := filepath.Join(root, "keep-me")
	require.NoError(t, os.Mkdir(foreign, 0o755))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(foreign, past, past))

	assert.Equal(t, 1, SweepStale(root, time.Hour))

	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh.Dir())
	assert.DirExists(t, foreign)
}

func TestSweepSkipsWorkspacesInUse(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	require.NoError(t, err)
	uploads, err := ws.Mkdir("uploads")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "upload-001"), []byte("%PDF"), 0o644))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(ws.Dir(), past, past))

	assert.Equal(t, 0, SweepStale(root, time.Hour))
	assert.FileExists(t, filepath.Join(uploads, "upload-001"))

	ws.Cleanup()
	assert.NoDirExists(t, ws.Dir())

	// once released, an old directory with the same id is fair game
	require.NoError(t, os.Mkdir(ws.Dir(), 0o755))
	require.NoError(t, os.Chtimes(ws.Dir(), past, past))
	assert.Equal(t, 1, SweepStale(root, time.Hour))
}

func TestSweepMissingRoot(t *testing.T) {
	assert.Equal(t, 0, SweepStale(filepath.Join(t.TempDir(), "absent"), time.Minute))
}
