package driver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()

	contents := `
name = "demo"
kvasir-version = "0.3.0"
output = "bin/demo"
link-libs = ["m", "pthread"]
import-paths = ["lib", "/opt/kvs"]
`

	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write project file: %s", err)
	}

	cfg := LoadProjectConfig(dir)
	if cfg == nil {
		t.Fatalf("expected a loaded config")
	}

	if cfg.Name != "demo" {
		t.Errorf("expected name `demo`, got %q", cfg.Name)
	}

	if cfg.Output != "bin/demo" {
		t.Errorf("expected output `bin/demo`, got %q", cfg.Output)
	}

	if len(cfg.LinkLibs) != 2 || cfg.LinkLibs[0] != "m" {
		t.Errorf("link libs loaded incorrectly: %v", cfg.LinkLibs)
	}

	if len(cfg.ImportPaths) != 2 {
		t.Fatalf("expected two import paths, got %d", len(cfg.ImportPaths))
	}

	if cfg.ImportPaths[0] != filepath.Join(dir, "lib") {
		t.Errorf("relative import path not resolved against the project dir: %q", cfg.ImportPaths[0])
	}

	if cfg.ImportPaths[1] != "/opt/kvs" {
		t.Errorf("absolute import path must pass through: %q", cfg.ImportPaths[1])
	}
}

func TestMissingProjectConfig(t *testing.T) {
	if cfg := LoadProjectConfig(t.TempDir()); cfg != nil {
		t.Errorf("expected nil config for a directory without a project file")
	}
}
