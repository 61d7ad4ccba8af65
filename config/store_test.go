// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func resetStore() {
	once = sync.Once{}
	system = nil
	loadErr = nil
	override = ""
}

func TestSystemDefaultsWritten(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetStore()

	cfg := System()
	if cfg.GetString(SectionPrettifier, "detection_scope", "") != "all" {
		t.Fatalf("expected detection_scope default")
	}

	path, err := systemConfigPath()
	if err != nil {
		t.Fatalf("systemConfigPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read system config: %v", err)
	}

	var disk Config
	if err := json.Unmarshal(data, &disk); err != nil {
		t.Fatalf("unmarshal system config: %v", err)
	}
	if disk.Section(SectionRenderers).Sub("json") == nil {
		t.Fatalf("expected renderer table to be present")
	}
}

func TestSaveSystemWritesUpdates(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetStore()

	SetSystem(Config{
		SectionClipboard: map[string]interface{}{"default_copy": "source"},
	})
	if err := SaveSystem(); err != nil {
		t.Fatalf("SaveSystem: %v", err)
	}

	path, err := systemConfigPath()
	if err != nil {
		t.Fatalf("systemConfigPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read system config: %v", err)
	}

	var disk Config
	if err := json.Unmarshal(data, &disk); err != nil {
		t.Fatalf("unmarshal system config: %v", err)
	}
	if got := disk.GetString(SectionClipboard, "default_copy", ""); got != "source" {
		t.Fatalf("expected default_copy to be source, got %q", got)
	}
}

func TestSystemMigrationFromLegacy(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	resetStore()

	cfgRoot := filepath.Join(root, "prettify")
	if err := os.MkdirAll(cfgRoot, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := writeConfig(filepath.Join(cfgRoot, "config.json"), Config{
		"enable_prettifier": false,
		"content_prettifier": map[string]interface{}{
			"detection_scope": "command_output",
		},
	}); err != nil {
		t.Fatalf("write legacy config: %v", err)
	}

	cfg := System()
	if cfg.GetBool(SectionPrettifier, "enabled", true) {
		t.Fatalf("expected enabled=false migration")
	}
	if got := cfg.GetString(SectionPrettifier, "detection_scope", ""); got != "command_output" {
		t.Fatalf("expected detection_scope migration, got %q", got)
	}
	if _, ok := cfg["content_prettifier"]; ok {
		t.Fatalf("legacy section should be removed")
	}
	if cfg.GetInt(SectionPrettifier, "max_scan_lines", 0) != 500 {
		t.Fatalf("defaults should fill migrated config")
	}
}

func TestUsePath_YAMLAndTOML(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	files := map[string]string{
		"p.yaml": "prettifier:\n  detection_scope: manual_only\n  max_scan_lines: 42\n",
		"p.toml": "[prettifier]\ndetection_scope = \"manual_only\"\nmax_scan_lines = 42\n",
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			resetStore()
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			if err := UsePath(path); err != nil {
				t.Fatalf("UsePath: %v", err)
			}
			cfg := System()
			if got := cfg.GetString(SectionPrettifier, "detection_scope", ""); got != "manual_only" {
				t.Errorf("detection_scope = %q", got)
			}
			if got := cfg.GetInt(SectionPrettifier, "max_scan_lines", 0); got != 42 {
				t.Errorf("max_scan_lines = %d", got)
			}
			if got := cfg.GetFloat(SectionPrettifier, "confidence_threshold", 0); got != 0.6 {
				t.Errorf("defaults not applied, threshold = %v", got)
			}
		})
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetInt(SectionCache, "max_entries", 0) != 64 {
		t.Fatalf("expected cache default")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := Config{SectionRenderers: map[string]interface{}{
		"json": map[string]interface{}{"enabled": true},
	}}
	c := Clone(orig)
	c.Section(SectionRenderers).Sub("json")["enabled"] = false
	if !orig.Section(SectionRenderers).Sub("json").GetBool("enabled", false) {
		t.Fatal("clone shares nested maps with the original")
	}
}
