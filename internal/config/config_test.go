package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Editor.TabSize != 4 {
		t.Errorf("Expected default tab_size 4, got %d", cfg.Editor.TabSize)
	}
	if cfg.Editor.MaxOpenTabs != 10 {
		t.Errorf("Expected default max_open_tabs 10, got %d", cfg.Editor.MaxOpenTabs)
	}
	if cfg.LSP.RequestTimeoutMS != 10000 {
		t.Errorf("Expected default request_timeout_ms 10000, got %d", cfg.LSP.RequestTimeoutMS)
	}
	if cfg.LSP.MaxCompletions != 100 {
		t.Errorf("Expected default max_completions 100, got %d", cfg.LSP.MaxCompletions)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default level info, got %q", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load with missing file returned error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected defaults for missing file, got nil")
	}
	if cfg.Editor.MaxOpenTabs != 10 {
		t.Errorf("Expected defaults, got max_open_tabs %d", cfg.Editor.MaxOpenTabs)
	}
}

func TestLoad_PartialFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := []byte("[editor]\ntab_size = 2\nmax_open_tabs = 5\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Editor.TabSize != 2 {
		t.Errorf("Expected tab_size 2, got %d", cfg.Editor.TabSize)
	}
	if cfg.Editor.MaxOpenTabs != 5 {
		t.Errorf("Expected max_open_tabs 5, got %d", cfg.Editor.MaxOpenTabs)
	}
	// Untouched sections keep defaults.
	if cfg.LSP.MaxCompletions != 100 {
		t.Errorf("Expected default max_completions, got %d", cfg.LSP.MaxCompletions)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[editor\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for invalid TOML")
	}

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("Expected ParseError, got %T", err)
	}
}

func TestNormalize_ClampsInvalidValues(t *testing.T) {
	cfg := &Config{
		Editor: EditorConfig{
			TabSize:           0,
			MaxOpenTabs:       -1,
			ClosedHistorySize: -5,
			RecentFilesSize:   -1,
		},
		LSP: LSPConfig{RequestTimeoutMS: 0, MaxCompletions: 0},
	}

	cfg.Normalize()

	if cfg.Editor.TabSize != 4 {
		t.Errorf("Expected tab_size normalized to 4, got %d", cfg.Editor.TabSize)
	}
	if cfg.Editor.MaxOpenTabs != 10 {
		t.Errorf("Expected max_open_tabs normalized to 10, got %d", cfg.Editor.MaxOpenTabs)
	}
	if cfg.Editor.ClosedHistorySize != 10 {
		t.Errorf("Expected closed_history_size normalized to 10, got %d", cfg.Editor.ClosedHistorySize)
	}
	if cfg.LSP.RequestTimeoutMS != 10000 {
		t.Errorf("Expected request_timeout_ms normalized, got %d", cfg.LSP.RequestTimeoutMS)
	}
	if cfg.LSP.MaxCompletions != 100 {
		t.Errorf("Expected max_completions normalized, got %d", cfg.LSP.MaxCompletions)
	}
}

func TestNormalize_TabSizeUpperBound(t *testing.T) {
	cfg := Default()
	cfg.Editor.TabSize = 64

	cfg.Normalize()

	if cfg.Editor.TabSize != 4 {
		t.Errorf("Expected oversized tab_size normalized to 4, got %d", cfg.Editor.TabSize)
	}
}
