// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/settings.go
// Summary: Typed view of the prettifier sections.

package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

// Defaults shared by the typed view and the renderer factories.
const (
	DefaultPriority   = 50
	DefaultRuleWeight = 0.3
)

// Settings mirrors the prettifier sections of the config file. Section names
// double as JSON keys, so a Config decodes into Settings directly.
type Settings struct {
	Core           CoreSettings                `json:"prettifier"`
	Clipboard      ClipboardSettings           `json:"prettifier.clipboard"`
	Cache          CacheSettings               `json:"prettifier.cache"`
	Renderers      map[string]RendererSettings `json:"prettifier.renderers,omitempty"`
	DetectionRules map[string]FormatRules      `json:"prettifier.detection_rules,omitempty"`
}

type CoreSettings struct {
	Enabled             bool             `json:"enabled"`
	DetectionScope      string           `json:"detection_scope" jsonschema:"enum=all,enum=command_output,enum=manual_only"`
	ConfidenceThreshold float64          `json:"confidence_threshold" jsonschema:"minimum=0,maximum=1"`
	MaxScanLines        int              `json:"max_scan_lines" jsonschema:"minimum=1"`
	DebounceMs          int              `json:"debounce_ms" jsonschema:"minimum=0"`
	BlankLineThreshold  int              `json:"blank_line_threshold" jsonschema:"minimum=1"`
	RenderTimeoutMs     int              `json:"render_timeout_ms" jsonschema:"minimum=0"`
	LogLevel            string           `json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	AllowedCommands     []string         `json:"allowed_commands,omitempty"`
	CustomRenderers     []CustomRenderer `json:"custom_renderers,omitempty"`
}

// Debounce returns DebounceMs as a duration.
func (c CoreSettings) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// RenderTimeout returns RenderTimeoutMs as a duration.
func (c CoreSettings) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutMs) * time.Millisecond
}

type ClipboardSettings struct {
	DefaultCopy string `json:"default_copy" jsonschema:"enum=rendered,enum=source"`
}

type CacheSettings struct {
	MaxEntries int `json:"max_entries" jsonschema:"minimum=0"`
	// DiagramCache is the sqlite file for rendered diagrams; empty disables
	// the disk cache.
	DiagramCache string `json:"diagram_cache,omitempty"`
}

// RendererSettings toggles a built-in format. Options holds the whole table,
// including renderer specific keys, for the renderer factory.
type RendererSettings struct {
	Enabled  bool    `json:"enabled"`
	Priority int     `json:"priority"`
	Options  Section `json:"-"`
}

func (r *RendererSettings) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	opts := Section(raw)
	r.Enabled = opts.GetBool("enabled", true)
	r.Priority = opts.GetInt("priority", DefaultPriority)
	r.Options = opts
	return nil
}

// FormatRules customises the detection rules of one format.
type FormatRules struct {
	Additional []UserRule     `json:"additional,omitempty"`
	Overrides  []RuleOverride `json:"overrides,omitempty"`
}

// UserRule is a detection rule written in the config file.
type UserRule struct {
	ID             string  `json:"id" jsonschema:"required"`
	Pattern        string  `json:"pattern" jsonschema:"required"`
	Weight         float64 `json:"weight" jsonschema:"minimum=0,maximum=1,default=0.3"`
	Scope          string  `json:"scope,omitempty" jsonschema:"default=any_line"`
	Strength       string  `json:"strength,omitempty" jsonschema:"enum=supporting,enum=strong,enum=definitive"`
	CommandContext string  `json:"command_context,omitempty"`
	Description    string  `json:"description,omitempty"`
	Enabled        bool    `json:"enabled" jsonschema:"default=true"`
}

func (u *UserRule) UnmarshalJSON(data []byte) error {
	type plain UserRule
	p := plain{Weight: DefaultRuleWeight, Scope: "any_line", Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = UserRule(p)
	return nil
}

// RuleOverride adjusts a built-in rule by id. Nil fields are left alone.
type RuleOverride struct {
	ID      string   `json:"id" jsonschema:"required"`
	Enabled *bool    `json:"enabled,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
	Scope   *string  `json:"scope,omitempty"`
}

// CustomRenderer pipes matching blocks to an external command.
type CustomRenderer struct {
	ID             string   `json:"id" jsonschema:"required"`
	Name           string   `json:"name,omitempty"`
	DetectPatterns []string `json:"detect_patterns" jsonschema:"required"`
	RenderCommand  string   `json:"render_command" jsonschema:"required"`
	RenderArgs     []string `json:"render_args,omitempty"`
	Priority       int      `json:"priority" jsonschema:"default=50"`
	UsePty         bool     `json:"use_pty,omitempty"`
}

func (c *CustomRenderer) UnmarshalJSON(data []byte) error {
	type plain CustomRenderer
	p := plain{Priority: DefaultPriority}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	*c = CustomRenderer(p)
	return nil
}

// Renderer returns the settings for formatID, enabled at the default
// priority when the format is not configured.
func (s Settings) Renderer(formatID string) RendererSettings {
	if r, ok := s.Renderers[formatID]; ok {
		return r
	}
	return RendererSettings{Enabled: true, Priority: DefaultPriority}
}

// SettingsOf decodes the prettifier sections of cfg, filling in defaults
// for anything missing. cfg is not modified.
func SettingsOf(cfg Config) (Settings, error) {
	work := Clone(cfg)
	if work == nil {
		work = make(Config)
	}
	migrateLegacyKeys(work)
	applySystemDefaults(work)
	data, err := json.Marshal(work)
	if err != nil {
		return Settings{}, fmt.Errorf("encode config: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode prettifier settings: %w", err)
	}
	return s, s.Validate()
}

// Validate rejects values the pipeline cannot interpret.
func (s Settings) Validate() error {
	switch s.Core.DetectionScope {
	case "all", "command_output", "manual_only", "manual":
	default:
		return fmt.Errorf("prettifier.detection_scope: unknown scope %q", s.Core.DetectionScope)
	}
	switch s.Clipboard.DefaultCopy {
	case "rendered", "source":
	default:
		return fmt.Errorf("prettifier.clipboard.default_copy: unknown mode %q", s.Clipboard.DefaultCopy)
	}
	if s.Core.ConfidenceThreshold < 0 || s.Core.ConfidenceThreshold > 1 {
		return fmt.Errorf("prettifier.confidence_threshold: %v outside [0,1]", s.Core.ConfidenceThreshold)
	}
	seen := map[string]bool{}
	for i, c := range s.Core.CustomRenderers {
		if c.ID == "" {
			return fmt.Errorf("prettifier.custom_renderers[%d]: missing id", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("prettifier.custom_renderers[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
		if c.RenderCommand == "" {
			return fmt.Errorf("prettifier.custom_renderers[%d]: %s has no render_command", i, c.ID)
		}
	}
	return nil
}

// Schema returns the JSON schema of the config file.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	sch := r.Reflect(&Settings{})
	sch.Title = "prettify configuration"
	return sch
}

// MarshalSchema indents the schema to JSON bytes.
func MarshalSchema(sch *jsonschema.Schema) ([]byte, error) {
	return json.MarshalIndent(sch, "", "  ")
}
