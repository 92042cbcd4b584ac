package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load(t.TempDir())
	if cfg.EffectiveMaxDepth() != 10 {
		t.Errorf("default max depth: want 10, got %d", cfg.EffectiveMaxDepth())
	}
	if cfg.EffectiveDebounce() != 300*time.Millisecond {
		t.Errorf("default debounce: want 300ms, got %v", cfg.EffectiveDebounce())
	}
	if cfg.EagerRefresh {
		t.Error("eager refresh must default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	yml := "max_depth: 4\ncache_path: /tmp/custom.db\neager_refresh: true\nwatch:\n  debounce_ms: 50\n"
	if err := os.WriteFile(filepath.Join(dir, ".flowgraph.yml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(dir)
	if cfg.EffectiveMaxDepth() != 4 {
		t.Errorf("max depth: want 4, got %d", cfg.EffectiveMaxDepth())
	}
	if cfg.CachePath != "/tmp/custom.db" {
		t.Errorf("cache path: got %s", cfg.CachePath)
	}
	if !cfg.EagerRefresh {
		t.Error("eager refresh not loaded")
	}
	if cfg.EffectiveDebounce() != 50*time.Millisecond {
		t.Errorf("debounce: want 50ms, got %v", cfg.EffectiveDebounce())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".flowgraph.yml"), []byte("max_depth: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(dir)
	if cfg.EffectiveMaxDepth() != 10 {
		t.Error("invalid YAML must fall back to defaults")
	}
}
