// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

func TestSettingsOf_Defaults(t *testing.T) {
	s, err := SettingsOf(nil)
	if err != nil {
		t.Fatalf("SettingsOf: %v", err)
	}
	if !s.Core.Enabled || s.Core.DetectionScope != "all" {
		t.Errorf("core = %+v", s.Core)
	}
	if s.Core.ConfidenceThreshold != 0.6 || s.Core.MaxScanLines != 500 || s.Core.BlankLineThreshold != 2 {
		t.Errorf("core numbers = %+v", s.Core)
	}
	if s.Core.Debounce().Milliseconds() != 100 {
		t.Errorf("debounce = %v", s.Core.Debounce())
	}
	if s.Clipboard.DefaultCopy != "rendered" || s.Cache.MaxEntries != 64 {
		t.Errorf("clipboard/cache = %+v %+v", s.Clipboard, s.Cache)
	}
	js := s.Renderer("json")
	if !js.Enabled || js.Priority != 50 || js.Options.GetInt("max_depth_expanded", 0) != 3 {
		t.Errorf("json renderer = %+v", js)
	}
	if d := s.Renderer("diagrams"); d.Priority != 60 {
		t.Errorf("diagrams priority = %d", d.Priority)
	}
	if u := s.Renderer("unknown"); !u.Enabled || u.Priority != DefaultPriority {
		t.Errorf("unconfigured renderer = %+v", u)
	}
}

func TestSettingsOf_PartialRendererTable(t *testing.T) {
	cfg := Config{SectionRenderers: map[string]interface{}{
		"json": map[string]interface{}{"priority": 10},
	}}
	s, err := SettingsOf(cfg)
	if err != nil {
		t.Fatalf("SettingsOf: %v", err)
	}
	js := s.Renderer("json")
	if !js.Enabled || js.Priority != 10 {
		t.Errorf("json = %+v", js)
	}
	// The caller's map is untouched.
	if _, ok := cfg[SectionPrettifier]; ok {
		t.Error("SettingsOf mutated its input")
	}
}

func TestSettingsOf_RulesAndCustomRenderers(t *testing.T) {
	cfg := Config{
		SectionPrettifier: map[string]interface{}{
			"custom_renderers": []interface{}{
				map[string]interface{}{
					"id":              "proto",
					"detect_patterns": []interface{}{`^syntax = "proto3";`},
					"render_command":  "buf",
				},
			},
		},
		SectionDetectionRules: map[string]interface{}{
			"markdown": map[string]interface{}{
				"additional": []interface{}{
					map[string]interface{}{"id": "md_custom", "pattern": "^:::"},
				},
				"overrides": []interface{}{
					map[string]interface{}{"id": "md_bold", "enabled": false},
				},
			},
		},
	}
	s, err := SettingsOf(cfg)
	if err != nil {
		t.Fatalf("SettingsOf: %v", err)
	}
	cr := s.Core.CustomRenderers
	if len(cr) != 1 || cr[0].Name != "proto" || cr[0].Priority != DefaultPriority {
		t.Fatalf("custom renderers = %+v", cr)
	}
	md := s.DetectionRules["markdown"]
	if len(md.Additional) != 1 {
		t.Fatalf("additional = %+v", md.Additional)
	}
	add := md.Additional[0]
	if add.Weight != DefaultRuleWeight || add.Scope != "any_line" || !add.Enabled {
		t.Errorf("user rule defaults = %+v", add)
	}
	if len(md.Overrides) != 1 || md.Overrides[0].Enabled == nil || *md.Overrides[0].Enabled {
		t.Errorf("overrides = %+v", md.Overrides)
	}
	if md.Overrides[0].Weight != nil {
		t.Error("unset override fields should stay nil")
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"bad scope", Config{SectionPrettifier: map[string]interface{}{"detection_scope": "sometimes"}}, "detection_scope"},
		{"bad copy", Config{SectionClipboard: map[string]interface{}{"default_copy": "both"}}, "default_copy"},
		{"bad threshold", Config{SectionPrettifier: map[string]interface{}{"confidence_threshold": 1.5}}, "confidence_threshold"},
		{"custom without command", Config{SectionPrettifier: map[string]interface{}{
			"custom_renderers": []interface{}{map[string]interface{}{"id": "x"}},
		}}, "render_command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SettingsOf(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	data, err := MarshalSchema(Schema())
	if err != nil {
		t.Fatalf("MarshalSchema: %v", err)
	}
	for _, want := range []string{"prettifier.clipboard", "detection_scope", "custom_renderers"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("schema missing %q", want)
		}
	}
}

func TestSectionGetters(t *testing.T) {
	s := Section{
		"i64":   int64(7),
		"str":   "3",
		"list":  []interface{}{"a", 1, "b"},
		"flag":  "true",
		"inner": map[string]interface{}{"k": "v"},
	}
	if s.GetInt("i64", 0) != 7 || s.GetInt("str", 0) != 3 {
		t.Error("int conversions")
	}
	if got := s.GetStrings("list"); len(got) != 2 || got[1] != "b" {
		t.Errorf("GetStrings = %v", got)
	}
	if !s.GetBool("flag", false) {
		t.Error("bool from string")
	}
	if s.Sub("inner").GetString("k", "") != "v" {
		t.Error("Sub")
	}
	var nilSection Section
	if nilSection.GetInt("x", 5) != 5 {
		t.Error("nil section should return the default")
	}
}
