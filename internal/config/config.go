package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds user-overridable analysis settings.
// Loaded from .flowgraph.yml in the project root.
type Config struct {
	// MaxDepth bounds call-graph recursion. Default: 10.
	MaxDepth *int `yaml:"max_depth"`

	// CachePath overrides the graph database location.
	CachePath string `yaml:"cache_path"`

	// EagerRefresh re-extracts invalidated graphs immediately on file
	// change instead of lazily on next access. Default: false.
	EagerRefresh bool `yaml:"eager_refresh"`

	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig holds file-watcher settings.
type WatchConfig struct {
	// DebounceMs batches rapid change events. Default: 300.
	DebounceMs *int `yaml:"debounce_ms"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{}
}

// Load reads .flowgraph.yml from the given directory.
// Returns defaults if the file is missing or invalid.
func Load(dir string) *Config {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, ".flowgraph.yml"))
	if err != nil {
		return cfg // file not found or unreadable — use defaults
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default() // invalid YAML — use defaults
	}
	return cfg
}

// EffectiveMaxDepth returns the configured depth bound, or the default (10).
func (c *Config) EffectiveMaxDepth() int {
	if c.MaxDepth != nil && *c.MaxDepth > 0 {
		return *c.MaxDepth
	}
	return 10
}

// EffectiveDebounce returns the configured watch debounce, or the default
// (300ms).
func (c *Config) EffectiveDebounce() time.Duration {
	if c.Watch.DebounceMs != nil && *c.Watch.DebounceMs > 0 {
		return time.Duration(*c.Watch.DebounceMs) * time.Millisecond
	}
	return 300 * time.Millisecond
}
