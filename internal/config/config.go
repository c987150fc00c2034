// Package config loads and validates folio's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration for folio.
type Config struct {
	Editor     EditorConfig     `toml:"editor"`
	LSP        LSPConfig        `toml:"lsp"`
	Extensions ExtensionsConfig `toml:"extensions"`
	Session    SessionConfig    `toml:"session"`
	Logging    LoggingConfig    `toml:"logging"`
}

// EditorConfig holds buffer and input settings.
type EditorConfig struct {
	// TabSize is the number of spaces inserted for a Tab key press.
	TabSize int `toml:"tab_size"`
	// MaxOpenTabs bounds the number of simultaneously open unpinned
	// buffers; opening past the bound evicts the oldest unpinned one.
	MaxOpenTabs int `toml:"max_open_tabs"`
	// ClosedHistorySize bounds the reopen-closed-tab history.
	ClosedHistorySize int `toml:"closed_history_size"`
	// RecentFilesSize bounds the most-recently-used file list.
	RecentFilesSize int `toml:"recent_files_size"`
}

// LSPConfig holds language server client settings.
type LSPConfig struct {
	// RequestTimeoutMS is the per-request timeout in milliseconds.
	RequestTimeoutMS int `toml:"request_timeout_ms"`
	// MaxCompletions truncates completion results.
	MaxCompletions int `toml:"max_completions"`
}

// ExtensionsConfig holds extension registry and install settings.
type ExtensionsConfig struct {
	// Dir is where installed extensions live.
	Dir string `toml:"dir"`
	// RegistryPaths are YAML manifest files or directories of them.
	RegistryPaths []string `toml:"registry_paths"`
}

// SessionConfig holds workspace session persistence settings.
type SessionConfig struct {
	// Dir is the session database directory.
	Dir string `toml:"dir"`
	// Disabled turns off session persistence entirely.
	Disabled bool `toml:"disabled"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			TabSize:           4,
			MaxOpenTabs:       10,
			ClosedHistorySize: 10,
			RecentFilesSize:   50,
		},
		LSP: LSPConfig{
			RequestTimeoutMS: 10000,
			MaxCompletions:   100,
		},
		Extensions: ExtensionsConfig{
			Dir: defaultDir("extensions"),
		},
		Session: SessionConfig{
			Dir: defaultDir("session"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path. An empty path means
// DefaultPath. A missing file is not an error: defaults are returned.
// Loaded values are merged over defaults, so partial files work.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	cfg.Normalize()
	return cfg, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "folio", "config.toml")
}

// Normalize clamps out-of-range values back to their defaults.
func (c *Config) Normalize() {
	def := Default()
	if c.Editor.TabSize < 1 || c.Editor.TabSize > 16 {
		c.Editor.TabSize = def.Editor.TabSize
	}
	if c.Editor.MaxOpenTabs < 1 {
		c.Editor.MaxOpenTabs = def.Editor.MaxOpenTabs
	}
	if c.Editor.ClosedHistorySize < 0 {
		c.Editor.ClosedHistorySize = def.Editor.ClosedHistorySize
	}
	if c.Editor.RecentFilesSize < 0 {
		c.Editor.RecentFilesSize = def.Editor.RecentFilesSize
	}
	if c.LSP.RequestTimeoutMS < 1 {
		c.LSP.RequestTimeoutMS = def.LSP.RequestTimeoutMS
	}
	if c.LSP.MaxCompletions < 1 {
		c.LSP.MaxCompletions = def.LSP.MaxCompletions
	}
	if c.Extensions.Dir == "" {
		c.Extensions.Dir = def.Extensions.Dir
	}
	if c.Session.Dir == "" {
		c.Session.Dir = def.Session.Dir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// defaultDir returns a folio subdirectory under the user config dir,
// or a relative fallback when no home is available.
func defaultDir(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".folio", name)
	}
	return filepath.Join(dir, "folio", name)
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
