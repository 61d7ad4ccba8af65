// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Configuration store for prettify.

package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/framegrace/prettify/internal/logging"
)

const (
	systemConfigName = "prettify.json"
	legacyConfigName = "config.json"
)

// Config stores configuration sections as JSON-compatible data.
type Config map[string]interface{}

// Section stores key/value pairs for a configuration section.
type Section map[string]interface{}

var logger = logging.For("CONFIG")

var (
	mu       sync.RWMutex
	once     sync.Once
	system   Config
	loadErr  error
	override string
)

// Err returns the most recent system config load error.
func Err() error {
	once.Do(initStore)
	mu.RLock()
	defer mu.RUnlock()
	return loadErr
}

// System returns the system configuration (prettify.json, .yaml or .toml).
func System() Config {
	once.Do(initStore)
	mu.RLock()
	defer mu.RUnlock()
	return system
}

// UsePath points the store at an explicit config file and reloads it. An
// empty path restores the default location.
func UsePath(path string) error {
	mu.Lock()
	override = path
	mu.Unlock()
	once.Do(initStore)
	return Reload()
}

// Path returns the file the system config is read from.
func Path() (string, error) {
	mu.RLock()
	defer mu.RUnlock()
	return systemConfigPath()
}

// Reload refreshes the system config.
func Reload() error {
	once.Do(initStore)
	mu.Lock()
	defer mu.Unlock()
	loadErr = loadSystemLocked()
	return loadErr
}

// SaveSystem persists the current system config to disk.
func SaveSystem() error {
	once.Do(initStore)
	mu.Lock()
	defer mu.Unlock()
	path, err := systemConfigPath()
	if err != nil {
		return err
	}
	return writeConfig(path, system)
}

// SetSystem replaces the in-memory system config with the provided config.
func SetSystem(cfg Config) {
	once.Do(initStore)
	mu.Lock()
	defer mu.Unlock()
	if cfg == nil {
		cfg = make(Config)
	}
	system = Clone(cfg)
}

// Load reads a config file outside the store and fills in defaults. A
// missing file yields the defaults alone.
func Load(path string) (Config, error) {
	cfg, _, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = make(Config)
	}
	migrateLegacyKeys(cfg)
	applySystemDefaults(cfg)
	return cfg, nil
}

func initStore() {
	mu.Lock()
	defer mu.Unlock()
	system = make(Config)
	loadErr = loadSystemLocked()
}

func readConfig(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	cfg, err := decode(formatFor(path), data)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

func writeConfig(path string, cfg Config) error {
	if cfg == nil {
		cfg = make(Config)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := encode(formatFor(path), cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
