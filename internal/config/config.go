// Package config loads the luahost CLI configuration from TOML files.
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the CLI configuration.
type Config struct {
	// Libraries selects which Lua standard libraries to open. Empty
	// means the full standard set.
	Libraries []string `toml:"libraries"`

	// Globals are preset global variables installed before execution.
	Globals map[string]any `toml:"globals"`
}

// ParseError reports a TOML parse failure with its source path.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads configuration from path. A missing file is not an error;
// it returns a nil config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return parse(path, data)
}

// parse parses TOML data into a Config.
func parse(source string, data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
	}
	return &cfg, nil
}
