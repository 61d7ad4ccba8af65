// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/migrate.go
// Summary: Legacy config migration helpers.

package config

// migrateSystemFromLegacy copies settings from the old config.json that
// predates prettify.json. The legacy file is left in place.
func migrateSystemFromLegacy(cfg Config) (bool, error) {
	if cfg == nil {
		return false, nil
	}
	legacyPath, err := legacyConfigPath()
	if err != nil {
		return false, err
	}
	legacyCfg, exists, err := readConfig(legacyPath)
	if err != nil || !exists {
		return false, err
	}
	migrateLegacyKeys(legacyCfg)
	migrated := false
	for name := range legacyCfg {
		if copySection(cfg, legacyCfg, name) {
			migrated = true
		}
	}
	return migrated, nil
}

// migrateLegacyKeys rewrites the flat enable_prettifier flag and the
// content_prettifier section into the prettifier section. Existing
// prettifier keys win.
func migrateLegacyKeys(cfg Config) bool {
	changed := false
	if raw, ok := cfg["content_prettifier"]; ok {
		if legacy := asSection(raw); legacy != nil {
			cfg.RegisterDefaults(SectionPrettifier, legacy)
		}
		delete(cfg, "content_prettifier")
		changed = true
	}
	if raw, ok := cfg["enable_prettifier"]; ok {
		if enabled, ok := raw.(bool); ok {
			cfg.RegisterDefaults(SectionPrettifier, Section{"enabled": enabled})
		}
		delete(cfg, "enable_prettifier")
		changed = true
	}
	return changed
}

func copySection(dst Config, src Config, name string) bool {
	if _, ok := dst[name]; ok {
		return false
	}
	raw, ok := src[name]
	if !ok {
		return false
	}
	dst[name] = deepCopy(raw)
	return true
}
