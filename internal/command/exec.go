package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/kebairia/reseed/internal/logger"
)

// Runner executes a Spec to completion. If input is non-nil it is streamed to
// the process on stdin. Run blocks until the process exits and returns nil
// only for exit status zero.
type Runner interface {
	Run(ctx context.Context, spec Spec, input io.Reader) error
}

// ExecRunner runs commands on the local host with os/exec.
type ExecRunner struct {
	Logger logger.Logger
}

// Ensure ExecRunner satisfies Runner.
var _ Runner = ExecRunner{}

// Run spawns spec.Program, feeds input to its stdin, and waits. Stdout is
// discarded, stderr stays attached to the parent's stderr. The exit status
// decides success: a short write on stdin alone never fails the run.
func (r ExecRunner) Run(ctx context.Context, spec Spec, input io.Reader) error {
	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)
	cmd.Env = append(os.Environ(), spec.EnvList()...)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr

	// Feed stdin by hand instead of cmd.Stdin so a copy error cannot
	// outrank the exit status.
	var stdin io.WriteCloser
	if input != nil {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSpawn, spec.Program, err)
		}
		stdin = pipe
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSpawn, spec.Program, err)
	}

	if stdin != nil {
		if _, err := io.Copy(stdin, input); err != nil {
			// The process may have exited already; its status tells the story.
			if r.Logger != nil {
				r.Logger.Debug("stdin write interrupted",
					"program", spec.Program,
					"error", err,
				)
			}
		}
		if err := stdin.Close(); err != nil && r.Logger != nil {
			r.Logger.Debug("stdin close failed",
				"program", spec.Program,
				"error", err,
			)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCommandFailed, spec.Program, err)
	}
	return nil
}
