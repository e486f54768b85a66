package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "luahost.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
libraries = ["base", "table", "string"]

[globals]
app_name = "demo"
retries = 3
verbose = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config for an existing file")
	}

	want := []string{"base", "table", "string"}
	if len(cfg.Libraries) != len(want) {
		t.Fatalf("Libraries = %v, want %v", cfg.Libraries, want)
	}
	for i := range want {
		if cfg.Libraries[i] != want[i] {
			t.Errorf("Libraries[%d] = %q, want %q", i, cfg.Libraries[i], want[i])
		}
	}

	if cfg.Globals["app_name"] != "demo" {
		t.Errorf("globals.app_name = %v, want demo", cfg.Globals["app_name"])
	}
	if cfg.Globals["retries"] != int64(3) {
		t.Errorf("globals.retries = %v (%T), want 3", cfg.Globals["retries"], cfg.Globals["retries"])
	}
	if cfg.Globals["verbose"] != true {
		t.Errorf("globals.verbose = %v, want true", cfg.Globals["verbose"])
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() on a missing file error = %v", err)
	}
	if cfg != nil {
		t.Errorf("Load() on a missing file = %+v, want nil", cfg)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() on an empty file error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() on an empty file returned nil")
	}
	if len(cfg.Libraries) != 0 || len(cfg.Globals) != 0 {
		t.Errorf("empty file produced non-empty config: %+v", cfg)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "libraries = [unclosed")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() on invalid TOML did not fail")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %T, want *ParseError", err)
	}
	if perr.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", perr.Path, path)
	}
	if perr.Unwrap() == nil {
		t.Error("ParseError does not wrap the underlying error")
	}
}
