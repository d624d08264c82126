package ghostscript

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/podofo/internal/pdferr"
)

// maxStderr caps how much tool stderr is kept for error messages.
const maxStderr = 8 << 10

// Result describes how a finished subprocess exited.
type Result struct {
	ExitCode int
	Signaled bool
	Stderr   string
	Duration time.Duration
}

// Runner launches an external tool and waits for it.
//
// A non-nil error means the tool could not be started or the context ended;
// a tool that ran and exited badly is reported through Result.
type Runner interface {
	Run(ctx context.Context, tool string, args []string) (Result, error)
}

// ExecRunner runs tools with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, tool string, args []string) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, tool, args...)
	stderr := &capBuffer{max: maxStderr}
	cmd.Stderr = stderr

	log.Debug().Str("cmd", tool+" "+strings.Join(args, " ")).Msg("external tool command")

	err := cmd.Run()
	res := Result{Stderr: strings.TrimSpace(stderr.String()), Duration: time.Since(start)}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		res.Signaled = res.ExitCode == -1
		return res, nil
	}
	return res, pdferr.Errorf(pdferr.ExternalToolMissing, "run "+tool, "%s could not be started, is it installed? %w", tool, err)
}

type capBuffer struct {
	buf bytes.Buffer
	max int
}

func (c *capBuffer) Write(p []byte) (int, error) {
	if room := c.max - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *capBuffer) String() string { return c.buf.String() }
