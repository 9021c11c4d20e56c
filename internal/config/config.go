// Package config loads and persists the per-project nsyte configuration: relay set,
// Blossom server set, optional bunker pubkey, fallback file, profile payload, and
// publish-list flags (spec.md §3). Secrets (private keys, nbunksec tokens) are never
// stored inline in this file; they live in a SecretStore, which Load does not read.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the config file nsyte reads and writes in the project root.
const FileName = ".nsyte/config.json"

// ProjectConfig is the on-disk (and in-memory) project configuration.
type ProjectConfig struct {
	Relays             []string `json:"relays"`
	Servers            []string `json:"servers"`
	BunkerPubkey       string   `json:"bunkerPubkey,omitempty"`
	Fallback           string   `json:"fallback,omitempty"`
	Profile            string   `json:"profile,omitempty"` // raw JSON payload, published verbatim
	PublishServerList  bool     `json:"publishServerList,omitempty"`
	PublishRelayList   bool     `json:"publishRelayList,omitempty"`
	PublishProfile     bool     `json:"publishProfile,omitempty"`
	Gateways           []string `json:"gateways,omitempty"`
	Concurrency        int      `json:"concurrency,omitempty"`

	mu sync.RWMutex
}

// DefaultConcurrency is used when a config omits Concurrency or sets it to 0.
const DefaultConcurrency = 4

// New returns an empty configuration seeded with default concurrency.
func New() *ProjectConfig {
	return &ProjectConfig{Concurrency: DefaultConcurrency}
}

// Load reads and parses the config file at path. A missing file is not an error; it
// yields a fresh New() config so first-run flows can proceed (mirrors the registry's
// LoadFromFile no-file-yet behavior).
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return cfg, nil
}

// Save persists the config to path, creating parent directories as needed. Config
// never carries secrets, so 0644 is fine; secret material lives only in the SecretStore.
func (c *ProjectConfig) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ProjectPath returns the standard config path under a project root.
func ProjectPath(projectRoot string) string {
	return filepath.Join(projectRoot, FileName)
}
