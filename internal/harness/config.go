// Package harness runs an executable over a directory of fixtures and reports
// which fixtures made it write to its error stream.
package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// DefaultConfigFile is picked up from the working directory when no config
// path is given explicitly.
const DefaultConfigFile = ".runtests.yaml"

// Config describes one harness run.
type Config struct {
	// Executable is the program invoked once per fixture.
	Executable string `yaml:"executable"`

	// Fixtures is the directory whose entries are the fixtures.
	Fixtures string `yaml:"fixtures"`

	// Env holds extra KEY=VALUE entries for the executable under test.
	Env []string `yaml:"env,omitempty"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Executable: "./toplevel.native",
		Fixtures:   "./tests/",
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveConfig loads path if set, else DefaultConfigFile if it exists in the
// working directory, else the defaults. The returned source names where the
// configuration came from.
func ResolveConfig(path string) (cfg Config, source string, err error) {
	if path == "" {
		if _, statErr := os.Stat(DefaultConfigFile); statErr != nil {
			return DefaultConfig(), "defaults", nil
		}
		path = DefaultConfigFile
	}

	cfg, err = LoadConfig(path)
	if err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Executable) == "" {
		errs = append(errs, errors.New("executable is empty"))
	}
	if strings.TrimSpace(c.Fixtures) == "" {
		errs = append(errs, errors.New("fixtures directory is empty"))
	}
	for i, kv := range c.Env {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			errs = append(errs, fmt.Errorf("env entry at index %d is not KEY=VALUE: %q", i, kv))
		}
	}
	return errors.Join(errs...)
}

// Environ returns the environment for the executable under test. A nil result
// means the child inherits the harness environment unchanged.
func (c Config) Environ() []string {
	if len(c.Env) == 0 {
		return nil
	}

	env := os.Environ()
	for _, kv := range c.Env {
		key, value, _ := strings.Cut(kv, "=")
		env = updateEnv(env, key, value)
	}
	return env
}

// updateEnv updates or adds an environment variable
func updateEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
