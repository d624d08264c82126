// Package workspace gives every request its own scratch directory and
// guarantees the directory is removed exactly once.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/podofo/internal/metrics"
)

// live holds the ids of workspaces this process has not cleaned up yet.
// SweepStale never touches them, however old their directory looks.
var live sync.Map

// Workspace is a request-scoped directory under a shared root.
type Workspace struct {
	id   string
	dir  string
	once sync.Once
}

// New creates root/<uuid>.
func New(root string) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	live.Store(id, struct{}{})
	return &Workspace{id: id, dir: dir}, nil
}

func (w *Workspace) ID() string  { return w.id }
func (w *Workspace) Dir() string { return w.dir }

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name ...string) string {
	return filepath.Join(append([]string{w.dir}, name...)...)
}

// Mkdir creates a subdirectory and returns its path.
func (w *Workspace) Mkdir(name string) (string, error) {
	p := w.Path(name)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return p, nil
}

// Cleanup removes the workspace. Only the first call does any work; a
// failure is logged and counted, never returned.
func (w *Workspace) Cleanup() {
	w.once.Do(func() {
		defer live.Delete(w.id)
		if err := os.RemoveAll(w.dir); err != nil {
			metrics.IncCleanupFailure()
			log.Warn().Err(err).Str("workspace", w.id).Msg("workspace cleanup failed")
			return
		}
		log.Debug().Str("workspace", w.id).Msg("workspace removed")
	})
}

// SweepStale removes workspace directories under root whose modification
// time is older than maxAge and that no request in this process still
// owns. It returns the number of directories removed.
func SweepStale(root string, maxAge time.Duration) int {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("root", root).Msg("workspace sweep: read root")
		}
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		if _, inUse := live.Load(e.Name()); inUse {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			metrics.IncCleanupFailure()
			log.Warn().Err(err).Str("workspace", e.Name()).Msg("workspace sweep: remove")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Str("root", root).Msg("stale workspaces swept")
	}
	return removed
}
