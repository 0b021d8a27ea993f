// Package main implements the CLI driver for the Dice fixture harness.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/a-delma/Dice/internal/harness"
)

// options holds all command-line configuration for a run.
type options struct {
	ConfigPath string // YAML config file; empty means auto-detect
	Executable string // overrides the config's executable when set
	Fixtures   string // overrides the config's fixtures directory when set
	Verbose    bool   // enables debug logging on stderr
}

const (
	exitFailed = 1
	exitError  = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the root command and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if err.Error() != "" {
		fmt.Fprintf(stderr, "runtests: %s\n", err)
	}
	var cErr *codedError
	if errors.As(err, &cErr) {
		return cErr.code
	}
	return exitError
}

func newRootCommand() *cobra.Command {
	var opts options
	defaults := harness.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "runtests",
		Short: "Run the Dice compiler over every test fixture",
		Long: `runtests invokes the compiler once for every entry in the fixtures directory,
passing the entry's path as the only argument.

A fixture fails if the compiler writes anything at all to stderr, whatever its
exit status. Each fixture gets one line on stdout:

  <fixture-path>: Passed
  <fixture-path>: Failed

Settings are read from the built-in defaults, then from ` + harness.DefaultConfigFile + `
(or --config), then from flags.

Exit codes:
  0 - All fixtures passed (or there were none)
  1 - One or more fixtures failed
  2 - The harness itself failed (missing directory, executable not runnable, ...)`,
		Example: `  runtests                                 # ./toplevel.native over ./tests/
  runtests --exec ./_build/dice            # different compiler
  runtests --dir ./regress/ -v             # different fixtures, debug logs on stderr
  runtests --config ci.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd, &opts)
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setup(cmd, &opts)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	// Set custom version template to include build info.
	rootCmd.SetVersionTemplate(fmt.Sprintf("runtests version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	rootCmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (default "+harness.DefaultConfigFile+" if present)")
	rootCmd.Flags().StringVar(&opts.Executable, "exec", defaults.Executable, "Executable to invoke once per fixture")
	rootCmd.Flags().StringVar(&opts.Fixtures, "dir", defaults.Fixtures, "Directory whose entries are the fixtures")
	rootCmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose output")

	return rootCmd
}

func runCommand(cmd *cobra.Command, opts *options) error {
	cfg, source, err := harness.ResolveConfig(opts.ConfigPath)
	if err != nil {
		return errWithCode(fmt.Errorf("load config: %w", err), exitError)
	}
	if cmd.Flags().Changed("exec") {
		cfg.Executable = opts.Executable
	}
	if cmd.Flags().Changed("dir") {
		cfg.Fixtures = opts.Fixtures
	}
	if err := cfg.Validate(); err != nil {
		return errWithCode(fmt.Errorf("invalid settings: %w", err), exitError)
	}

	slog.Info("starting fixture run",
		"config", source,
		"executable", cfg.Executable,
		"fixtures", cfg.Fixtures)

	h := harness.New(cfg,
		harness.WithOutput(cmd.OutOrStdout()),
		harness.WithLogger(slog.Default()))
	summary, err := h.Run(cmd.Context())
	if err != nil {
		return errWithCode(fmt.Errorf("run fixtures: %w", err), exitError)
	}
	slog.Info("fixture run completed", "num", summary.Total, "failed", summary.Failed)

	if summary.Failed {
		return errWithCode(nil, exitFailed)
	}
	return nil
}

func setup(cmd *cobra.Command, opts *options) {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if !opts.Verbose {
		return
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler).With("run_id", uuid.NewString()))
}

func errWithCode(err error, code int) error {
	return &codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e *codedError) Unwrap() error {
	return e.err
}
