package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Status is the classification of a single fixture.
type Status int

const (
	Passed Status = iota
	Failed
)

func (s Status) String() string {
	if s == Failed {
		return "Failed"
	}
	return "Passed"
}

// Result is a classified invocation.
type Result struct {
	Fixture    Fixture
	Status     Status
	Invocation *Invocation
}

// Summary is the outcome of a whole run.
type Summary struct {
	// Total is the number of fixtures processed.
	Total int

	// Failed is set once any fixture is classified Failed.
	Failed bool
}

// Harness drives one pass over a fixtures directory.
type Harness struct {
	cfg    Config
	out    io.Writer
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithOutput sets where result lines are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) { h.out = w }
}

// WithLogger sets the logger for progress and diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a harness for cfg.
func New(cfg Config, opts ...Option) *Harness {
	h := &Harness{
		cfg:    cfg,
		out:    os.Stdout,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Classify marks an invocation Failed if it wrote at least one byte to its
// error stream. The exit code plays no part.
func Classify(inv *Invocation) Status {
	if len(inv.Stderr) > 0 {
		return Failed
	}
	return Passed
}

// Report writes the result line for r.
func Report(w io.Writer, r Result) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", r.Fixture.Path, r.Status)
	return err
}

// Run invokes the executable once per fixture, in order, printing each result
// line as soon as it is known. Fixture failures only show up in the returned
// Summary; an error means the run itself could not continue.
func (h *Harness) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	fixtures, err := Discover(h.cfg.Fixtures)
	if err != nil {
		return summary, err
	}
	h.logger.Info("discovered fixtures", "dir", h.cfg.Fixtures, "num", len(fixtures))

	env := h.cfg.Environ()
	for _, f := range fixtures {
		result, err := h.runFixture(ctx, env, f)
		if err != nil {
			return summary, err
		}

		summary.Total++
		if result.Status == Failed {
			summary.Failed = true
		}

		if err := Report(h.out, result); err != nil {
			return summary, fmt.Errorf("writing result for %s: %w", f.Path, err)
		}
	}
	return summary, nil
}

func (h *Harness) runFixture(ctx context.Context, env []string, f Fixture) (Result, error) {
	inv, err := Invoke(ctx, h.cfg.Executable, env, f)
	if err != nil {
		return Result{}, err
	}

	status := Classify(inv)
	h.logger.Debug("fixture finished",
		"fixture", f.Path,
		"status", status.String(),
		"exit_code", inv.ExitCode,
		"stderr_bytes", len(inv.Stderr),
		"stdout_bytes", len(inv.Stdout),
		"dur", inv.Duration)

	return Result{Fixture: f, Status: status, Invocation: inv}, nil
}
