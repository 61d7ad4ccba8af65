// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/paths.go
// Summary: Path helpers for prettify configuration.

package config

import (
	"os"
	"path/filepath"
)

// alternateNames are probed in order when prettify.json does not exist.
var alternateNames = []string{"prettify.yaml", "prettify.yml", "prettify.toml"}

func configRoot() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "prettify"), nil
}

// systemConfigPath honours UsePath, then the first existing file among the
// known names, then falls back to prettify.json. Callers hold mu.
func systemConfigPath() (string, error) {
	if override != "" {
		return override, nil
	}
	root, err := configRoot()
	if err != nil {
		return "", err
	}
	primary := filepath.Join(root, systemConfigName)
	if _, err := os.Stat(primary); err == nil {
		return primary, nil
	}
	for _, name := range alternateNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return primary, nil
}

func legacyConfigPath() (string, error) {
	root, err := configRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, legacyConfigName), nil
}
