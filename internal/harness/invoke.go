package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// Invocation is everything captured from one run of the executable.
type Invocation struct {
	Fixture  Fixture
	Stdout   []byte
	Stderr   []byte
	ExitCode int // -1 if the process was killed by a signal
	Duration time.Duration
}

// LaunchError reports that the executable could not be started at all.
type LaunchError struct {
	Executable string
	Fixture    string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s %s: %v", e.Executable, e.Fixture, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Invoke runs executable with the fixture path as its only argument and
// blocks until it exits. Both output streams are captured in full and nothing
// reaches the caller's own stdout or stderr. A non-zero exit status is recorded,
// not returned as an error. env is passed to exec.Cmd as is, so nil inherits
// the current environment.
func Invoke(ctx context.Context, executable string, env []string, f Fixture) (*Invocation, error) {
	cmd := exec.CommandContext(ctx, executable, f.Path)
	cmd.Env = env

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Executable: executable, Fixture: f.Path, Err: err}
	}

	// Both pipes must be drained before Wait, and concurrently, or a child
	// that fills one of them blocks forever.
	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	copyErr := g.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if copyErr != nil {
		return nil, fmt.Errorf("capturing output of %s: %w", cmd.String(), copyErr)
	}

	inv := &Invocation{
		Fixture:  f,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		inv.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("%s: %w", cmd.String(), waitErr)
	}
	return inv, nil
}
