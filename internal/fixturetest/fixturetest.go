// Package fixturetest provides fixture trees and a scriptable stand-in for the
// executable under test.
//
// The stand-in is the test binary itself. A test package calls RunIfFake at
// the top of TestMain. Executable then returns a path that, when invoked with a
// fixture path, follows the directives written in that fixture:
//
//	# comment
//	stdout some text     write "some text\n" to stdout
//	stderr some text     write "some text\n" to stderr
//	want-env KEY=VALUE   write to stderr unless $KEY is VALUE
//	sleep 10s            sleep for a time.ParseDuration value
//	exit 3               exit with the given status
//
// Directives run top to bottom and exit stops processing. A fixture that
// cannot be read, such as a directory, makes the fake complain on stderr and
// exit 2.
package fixturetest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// FakeEnv is set in the environment of processes that should act as the fake
// executable.
const FakeEnv = "DICE_FIXTURETEST_FAKE"

// RunIfFake turns the current process into the fake executable when FakeEnv
// is set. It does not return in that case.
func RunIfFake() {
	if os.Getenv(FakeEnv) != "1" {
		return
	}
	os.Exit(FakeMain(os.Args[1:], os.Stdout, os.Stderr))
}

// Executable returns the path of the fake executable and marks the test
// environment so that child processes take the fake role.
func Executable(t testing.TB) string {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	t.Setenv(FakeEnv, "1")
	return exe
}

// FakeMain interprets the directives of the fixture named by args[0] and
// returns the exit status.
func FakeMain(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintf(stderr, "fake: want exactly one fixture argument, got %d\n", len(args))
		return 2
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "fake: %v\n", err)
		return 2
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		verb, arg, _ := strings.Cut(line, " ")
		switch verb {
		case "stdout":
			fmt.Fprintln(stdout, arg)
		case "stderr":
			fmt.Fprintln(stderr, arg)
		case "want-env":
			key, want, _ := strings.Cut(arg, "=")
			if got := os.Getenv(key); got != want {
				fmt.Fprintf(stderr, "fake: $%s = %q, want %q\n", key, got, want)
			}
		case "sleep":
			d, err := time.ParseDuration(arg)
			if err != nil {
				fmt.Fprintf(stderr, "fake: bad duration %q\n", arg)
				return 2
			}
			time.Sleep(d)
		case "exit":
			code, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintf(stderr, "fake: bad exit status %q\n", arg)
				return 2
			}
			return code
		default:
			fmt.Fprintf(stderr, "fake: unknown directive %q\n", verb)
			return 2
		}
	}
	return 0
}

// WriteArchive extracts a txtar archive into dir. Parent directories of
// archive members are created as needed, which is also the only way to get a
// subdirectory into a fixture tree.
func WriteArchive(t testing.TB, dir, archive string) {
	t.Helper()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, f.Data, 0o644))
	}
}

// Tree creates a fresh fixtures directory from a txtar archive and returns
// its path.
func Tree(t testing.TB, archive string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tests")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	WriteArchive(t, dir, archive)
	return dir
}
