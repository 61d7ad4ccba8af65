// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/prettifier.go
// Summary: Assembles a pipeline from the prettifier config sections.
//
// Package prettifier wires configuration into a ready pipeline: built-in
// detectors and renderers, user detection rules and overrides, and custom
// renderers backed by external commands.
package prettifier

import (
	"errors"
	"fmt"
	"sort"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/boundary"
	"github.com/framegrace/prettify/prettifier/detect"
	"github.com/framegrace/prettify/prettifier/detectors"
	"github.com/framegrace/prettify/prettifier/pipeline"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render/external"
	"github.com/framegrace/prettify/prettifier/types"
)

var logger = logging.For("PRETTIFIER")

// Custom renderer detectors accept a single matching pattern.
const (
	customThreshold = 0.6
	customWeight    = 0.8
)

// Build decodes cfg and returns a pipeline for a host described by host
// (width, theme, granted capabilities). Settings that fail to decode are
// fatal. Rule and renderer errors are returned alongside a pipeline that
// carries everything that did load.
func Build(cfg config.Config, host types.RendererConfig) (*pipeline.Pipeline, error) {
	s, err := config.SettingsOf(cfg)
	if err != nil {
		return nil, err
	}
	if s.Core.LogLevel != "" {
		logging.SetLevel(s.Core.LogLevel)
	}
	reg, regErr := NewRegistry(s)
	p := pipeline.New(reg, PipelineOptions(s, host))
	logger.Debug("pipeline built", "detectors", reg.DetectorCount(), "renderers", reg.RendererCount(),
		"scope", s.Core.DetectionScope, "enabled", s.Core.Enabled)
	return p, regErr
}

// Reload rebuilds the registry from cfg and installs it in p together with
// a renderer config derived from host. The previous registry is returned so
// the caller can close it once background renders have drained. On a decode
// error p is left untouched.
func Reload(p *pipeline.Pipeline, cfg config.Config, host types.RendererConfig) (*registry.Registry, []uint64, error) {
	s, err := config.SettingsOf(cfg)
	if err != nil {
		return nil, nil, err
	}
	if s.Core.LogLevel != "" {
		logging.SetLevel(s.Core.LogLevel)
	}
	old := p.Registry()
	reg, regErr := NewRegistry(s)
	p.SetEnabled(s.Core.Enabled)
	ids := p.Reconfigure(reg, RendererConfig(s, host))
	logger.Info("configuration reloaded", "rerendered", len(ids))
	return old, ids, regErr
}

// NewRegistry builds a registry from s. Disabled formats are skipped. The
// registry is usable even when an error is returned.
func NewRegistry(s config.Settings) (*registry.Registry, error) {
	threshold := s.Core.ConfidenceThreshold
	if threshold <= 0 {
		threshold = registry.DefaultConfidenceThreshold
	}
	reg := registry.New(threshold)

	var errs []error
	for _, e := range detectors.Builtin() {
		rs := s.Renderer(e.FormatID)
		if !rs.Enabled {
			logger.Debug("format disabled", "format", e.FormatID)
			continue
		}
		factory, ok := registry.Lookup(e.FormatID)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no renderer registered", e.FormatID))
			continue
		}
		opts := rendererOptions(s, e.FormatID, rs.Options)
		rend, err := factory(opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s renderer: %w", e.FormatID, err))
			continue
		}
		det := e.New()
		if e.FormatID == detectors.Diagrams {
			det = detectors.NewDiagrams(diagramTags(opts))
		}
		reg.RegisterDetector(opts.GetInt("priority", e.Priority), det)
		reg.RegisterRenderer(e.FormatID, rend)
	}

	errs = append(errs, addCustomRenderers(reg, s.Core.CustomRenderers)...)
	errs = append(errs, applyDetectionRules(reg, s)...)
	return reg, errors.Join(errs...)
}

// rendererOptions copies the renderer table and fills in keys that live in
// other sections.
func rendererOptions(s config.Settings, formatID string, in config.Section) config.Section {
	out := make(config.Section, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	if formatID == detectors.Diagrams && out.GetString("disk_cache", "") == "" && s.Cache.DiagramCache != "" {
		out["disk_cache"] = s.Cache.DiagramCache
	}
	return out
}

// diagramTags collects the fence tags a diagram table adds.
func diagramTags(opts config.Section) []string {
	tags := opts.GetStrings("extra_languages")
	for _, l := range opts.GetSections("languages") {
		if t := l.GetString("tag", ""); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func addCustomRenderers(reg *registry.Registry, crs []config.CustomRenderer) []error {
	var errs []error
	for _, cr := range crs {
		if _, builtin := detectors.Lookup(cr.ID); builtin {
			errs = append(errs, &detect.ConfigError{Format: cr.ID, Field: "id",
				Err: errors.New("custom renderer id shadows a built-in format")})
			continue
		}
		if _, taken := reg.Detector(cr.ID); taken {
			errs = append(errs, &detect.ConfigError{Format: cr.ID, Field: "id",
				Err: errors.New("duplicate custom renderer id")})
			continue
		}
		det, err := customDetector(cr)
		if err != nil {
			errs = append(errs, err)
		}
		if det == nil {
			continue
		}
		reg.RegisterDetector(cr.Priority, det)
		reg.RegisterRenderer(cr.ID, external.New(external.Options{
			ID:      cr.ID,
			Name:    cr.Name,
			Command: cr.RenderCommand,
			Args:    cr.RenderArgs,
			UsePty:  cr.UsePty,
		}))
		logger.Debug("custom renderer registered", "id", cr.ID, "command", cr.RenderCommand, "patterns", len(det.Rules()))
	}
	return errs
}

// customDetector turns detect_patterns into a rule set. The first pattern is
// strong and the rest supporting. Bad patterns are reported and skipped; the
// detector is nil only when no pattern compiles.
func customDetector(cr config.CustomRenderer) (*detect.RegexDetector, error) {
	b := detect.NewBuilder(cr.ID, cr.Name).
		Threshold(customThreshold).
		MinMatchingRules(1).
		DefinitiveShortCircuit(true)

	var errs []error
	n := 0
	for i, pat := range cr.DetectPatterns {
		strength := "supporting"
		if i == 0 {
			strength = "strong"
		}
		r, err := detect.NewUserRule(detect.UserRuleSpec{
			ID:          fmt.Sprintf("%s_rule_%d", cr.ID, i),
			Pattern:     pat,
			Weight:      customWeight,
			Strength:    strength,
			Description: "Custom renderer pattern for " + cr.Name,
			Enabled:     true,
		})
		if err != nil {
			errs = append(errs, withFormat(err, cr.ID))
			continue
		}
		b.Rule(r)
		n++
	}
	if n == 0 {
		errs = append(errs, &detect.ConfigError{Format: cr.ID, Field: "detect_patterns",
			Err: errors.New("no usable pattern")})
		return nil, errors.Join(errs...)
	}
	return b.Build(), errors.Join(errs...)
}

// applyDetectionRules layers additional rules and overrides onto the
// registered detectors, in format id order so errors are reported stably.
func applyDetectionRules(reg *registry.Registry, s config.Settings) []error {
	formats := make([]string, 0, len(s.DetectionRules))
	for id := range s.DetectionRules {
		formats = append(formats, id)
	}
	sort.Strings(formats)

	var errs []error
	for _, id := range formats {
		fr := s.DetectionRules[id]
		if _, ok := reg.Detector(id); !ok {
			if _, builtin := detectors.Lookup(id); builtin && !s.Renderer(id).Enabled {
				continue
			}
		}
		var rules []types.DetectionRule
		for _, u := range fr.Additional {
			r, err := detect.NewUserRule(detect.UserRuleSpec{
				ID:             u.ID,
				Pattern:        u.Pattern,
				Weight:         u.Weight,
				Scope:          u.Scope,
				Strength:       u.Strength,
				CommandContext: u.CommandContext,
				Description:    u.Description,
				Enabled:        u.Enabled,
			})
			if err != nil {
				errs = append(errs, withFormat(err, id))
				continue
			}
			rules = append(rules, r)
		}
		var overrides []detect.RuleOverride
		for _, o := range fr.Overrides {
			ov := detect.RuleOverride{ID: o.ID, Enabled: o.Enabled, Weight: o.Weight}
			if o.Scope != nil {
				scope, err := detect.ParseRuleScope(*o.Scope)
				if err != nil {
					errs = append(errs, &detect.ConfigError{Format: id, RuleID: o.ID, Field: "scope", Err: err})
					continue
				}
				ov.Scope = &scope
			}
			overrides = append(overrides, ov)
		}
		if len(rules) == 0 && len(overrides) == 0 {
			continue
		}
		if err := reg.ApplyRules(id, rules, overrides); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func withFormat(err error, formatID string) error {
	var ce *detect.ConfigError
	if errors.As(err, &ce) && ce.Format == "" {
		ce.Format = formatID
	}
	return err
}

// RendererConfig layers the configured command allow list and render
// timeout over what the host provides.
func RendererConfig(s config.Settings, host types.RendererConfig) types.RendererConfig {
	cfg := host
	cfg.AllowedCommands = append([]string(nil), s.Core.AllowedCommands...)
	if t := s.Core.RenderTimeout(); t > 0 {
		cfg.Timeout = t
	}
	return cfg
}

// PipelineOptions maps settings onto pipeline options.
func PipelineOptions(s config.Settings, host types.RendererConfig) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Enabled = s.Core.Enabled
	opts.ConfidenceThreshold = s.Core.ConfidenceThreshold
	opts.CacheSize = s.Cache.MaxEntries
	opts.Renderer = RendererConfig(s, host)

	bc := boundary.DefaultConfig()
	bc.Scope = boundary.ParseScope(s.Core.DetectionScope)
	if s.Core.MaxScanLines > 0 {
		bc.MaxScanLines = s.Core.MaxScanLines
	}
	bc.Debounce = s.Core.Debounce()
	if s.Core.BlankLineThreshold > 0 {
		bc.BlankLineThreshold = s.Core.BlankLineThreshold
	}
	opts.Boundary = bc
	return opts
}

// CopyMode returns the configured default clipboard mode.
func CopyMode(s config.Settings) pipeline.CopyMode {
	return pipeline.ParseCopyMode(s.Clipboard.DefaultCopy)
}
