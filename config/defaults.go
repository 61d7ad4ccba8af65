// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for the prettify configuration file.

package config

// Section names.
const (
	SectionPrettifier     = "prettifier"
	SectionClipboard      = "prettifier.clipboard"
	SectionCache          = "prettifier.cache"
	SectionRenderers      = "prettifier.renderers"
	SectionDetectionRules = "prettifier.detection_rules"
)

func applySystemDefaults(cfg Config) {
	if cfg == nil {
		return
	}
	cfg.RegisterDefaults(SectionPrettifier, Section{
		"enabled":              true,
		"detection_scope":      "all",
		"confidence_threshold": 0.6,
		"max_scan_lines":       500,
		"debounce_ms":          100,
		"blank_line_threshold": 2,
		"render_timeout_ms":    10000,
		"log_level":            "warn",
		"allowed_commands":     []interface{}{},
		"custom_renderers":     []interface{}{},
	})
	cfg.RegisterDefaults(SectionClipboard, Section{
		"default_copy": "rendered",
	})
	cfg.RegisterDefaults(SectionCache, Section{
		"max_entries":   64,
		"diagram_cache": "",
	})
	cfg.RegisterDefaults(SectionDetectionRules, Section{})

	// Renderer tables come from the embedded defaults so the written file
	// and the in-memory fallback agree.
	if def, err := embeddedSystemDefaults(); err == nil {
		if renderers := def.Section(SectionRenderers); renderers != nil {
			cfg.RegisterDefaults(SectionRenderers, deepCopy(renderers).(Section))
		}
	}
}
