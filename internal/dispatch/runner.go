package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/aryankumar/threader/internal/util"
)

// killGrace bounds how long Wait lingers on output pipes after a kill
const killGrace = 5 * time.Second

// Runner starts one job and blocks until it exits. It returns whatever the
// program printed; a non-zero exit is an error.
type Runner interface {
	Run(ctx context.Context, job Job) ([]byte, error)
}

// ExecRunner runs jobs as child processes. Cancelling ctx kills the child's
// whole process group.
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, job Job) ([]byte, error) {
	if len(job.Argv) == 0 {
		return nil, fmt.Errorf("job %s has no command line", job.Name())
	}

	cmd := exec.CommandContext(ctx, job.Argv[0], job.Argv[1:]...)
	cmd.Dir = job.Dir
	cmd.WaitDelay = killGrace
	setProcessGroup(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out.Bytes(), fmt.Errorf("%w: %v", util.ErrCancelled, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.Bytes(), fmt.Errorf("%w: %s exited with status %d", util.ErrJobFailed, job.Argv[0], exitErr.ExitCode())
		}
		return out.Bytes(), fmt.Errorf("%w: %v", util.ErrJobFailed, err)
	}
	return out.Bytes(), nil
}
