package harness

import (
	"fmt"
	"os"
)

// Fixture is one entry of the fixtures directory.
type Fixture struct {
	// Name is the directory entry name.
	Name string

	// Path is the configured directory with Name appended. It is what the
	// executable receives and what the report prints.
	Path string
}

// Discover lists every entry of dir as a fixture. Nothing is filtered out:
// subdirectories, dotfiles and files of any extension all count. Entries come
// back sorted by name, as os.ReadDir returns them.
func Discover(dir string) ([]Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing fixtures: %w", err)
	}

	fixtures := make([]Fixture, 0, len(entries))
	for _, entry := range entries {
		fixtures = append(fixtures, Fixture{
			Name: entry.Name(),
			Path: fixturePath(dir, entry.Name()),
		})
	}
	return fixtures, nil
}

// fixturePath appends name to dir without cleaning dir, so "./tests/" yields
// "./tests/t1.roll" rather than "tests/t1.roll".
func fixturePath(dir, name string) string {
	if dir != "" && os.IsPathSeparator(dir[len(dir)-1]) {
		return dir + name
	}
	return dir + string(os.PathSeparator) + name
}
