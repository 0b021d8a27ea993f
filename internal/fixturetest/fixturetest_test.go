package fixturetest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeMain(t *testing.T) {
	t.Setenv("DICE_FIXTURETEST_MODE", "strict")

	tests := []struct {
		name       string
		fixture    string
		wantStdout string
		wantStderr string
		wantCode   int
	}{
		{
			name:    "empty",
			fixture: "",
		},
		{
			name:       "streams",
			fixture:    "# a comment\nstdout hello\n\nstderr oops\nstdout bye\n",
			wantStdout: "hello\nbye\n",
			wantStderr: "oops\n",
		},
		{
			name:       "exit_stops_processing",
			fixture:    "stdout before\nexit 7\nstdout after\n",
			wantStdout: "before\n",
			wantCode:   7,
		},
		{
			name:    "env_matches",
			fixture: "want-env DICE_FIXTURETEST_MODE=strict\n",
		},
		{
			name:       "env_differs",
			fixture:    "want-env DICE_FIXTURETEST_MODE=lax\n",
			wantStderr: "fake: $DICE_FIXTURETEST_MODE = \"strict\", want \"lax\"\n",
		},
		{
			name:       "bare_stderr_is_one_newline",
			fixture:    "stderr\n",
			wantStderr: "\n",
		},
		{
			name:       "unknown_directive",
			fixture:    "explode now\n",
			wantStderr: "fake: unknown directive \"explode\"\n",
			wantCode:   2,
		},
		{
			name:       "bad_exit",
			fixture:    "exit soon\n",
			wantStderr: "fake: bad exit status \"soon\"\n",
			wantCode:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "f.roll")
			require.NoError(t, os.WriteFile(path, []byte(tt.fixture), 0o644))

			var stdout, stderr bytes.Buffer
			code := FakeMain([]string{path}, &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStdout, stdout.String())
			assert.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestFakeMainUnreadable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := FakeMain([]string{t.TempDir()}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Empty(t, stdout.String())
	assert.NotEmpty(t, stderr.String())

	stderr.Reset()
	code = FakeMain(nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "want exactly one fixture argument")
}

func TestTree(t *testing.T) {
	dir := Tree(t, `
ignored comment
-- t1.roll --
stdout 1
-- nested/deep/t2.roll --
stderr 2
`)

	assert.Equal(t, "tests", filepath.Base(dir))

	data, err := os.ReadFile(filepath.Join(dir, "t1.roll"))
	require.NoError(t, err)
	assert.Equal(t, "stdout 1\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "nested", "deep", "t2.roll"))
	require.NoError(t, err)
	assert.Equal(t, "stderr 2\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
