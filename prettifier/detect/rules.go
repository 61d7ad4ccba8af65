// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/framegrace/prettify/prettifier/types"
)

// ConfigError reports a rejected rule, scope or override from configuration.
// The offending item is skipped; the rest of the rule set still loads.
type ConfigError struct {
	Format string
	RuleID string
	Field  string
	Err    error
}

func (e *ConfigError) Error() string {
	var where []string
	if e.Format != "" {
		where = append(where, "format "+e.Format)
	}
	if e.RuleID != "" {
		where = append(where, "rule "+e.RuleID)
	}
	if e.Field != "" {
		where = append(where, e.Field)
	}
	if len(where) == 0 {
		return fmt.Sprintf("prettifier config: %v", e.Err)
	}
	return fmt.Sprintf("prettifier config: %s: %v", strings.Join(where, ", "), e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// RuleOverride patches an existing rule by id. Nil fields are left untouched.
type RuleOverride struct {
	ID      string
	Enabled *bool
	Weight  *float64
	Scope   *types.RuleScope
}

// MergeUserRules returns a new detector with rules merged in. A rule whose id
// already exists replaces weight, scope and enabled. Pattern, strength,
// command context and description are only replaced when the existing rule
// is itself user-defined, so built-in rules can be tuned but not rewritten.
// New ids are appended in order.
func (d *RegexDetector) MergeUserRules(rules []types.DetectionRule) *RegexDetector {
	out := *d
	out.rules = cloneRules(d.rules)
	for _, in := range rules {
		idx := out.indexOf(in.ID)
		if idx < 0 {
			out.rules = append(out.rules, in)
			continue
		}
		existing := &out.rules[idx]
		existing.Weight = types.ClampWeight(in.Weight)
		existing.Scope = in.Scope
		existing.Enabled = in.Enabled
		if existing.Source == types.UserDefined {
			if in.Pattern != nil {
				existing.Pattern = in.Pattern
			}
			existing.Strength = in.Strength
			existing.CommandContext = in.CommandContext
			existing.Description = in.Description
		}
	}
	return &out
}

// ApplyOverrides returns a new detector with the overrides applied. Unknown
// ids are ignored so stale configuration keeps loading.
func (d *RegexDetector) ApplyOverrides(overrides []RuleOverride) *RegexDetector {
	out := *d
	out.rules = cloneRules(d.rules)
	for _, ov := range overrides {
		idx := out.indexOf(ov.ID)
		if idx < 0 {
			logger.Debug("override for unknown rule ignored", "format", d.formatID, "rule", ov.ID)
			continue
		}
		r := &out.rules[idx]
		if ov.Enabled != nil {
			r.Enabled = *ov.Enabled
		}
		if ov.Weight != nil {
			r.Weight = types.ClampWeight(*ov.Weight)
		}
		if ov.Scope != nil {
			r.Scope = *ov.Scope
		}
	}
	return &out
}

func (d *RegexDetector) indexOf(id string) int {
	for i := range d.rules {
		if d.rules[i].ID == id {
			return i
		}
	}
	return -1
}

// UserRuleSpec is the configuration form of a user rule.
type UserRuleSpec struct {
	ID             string
	Pattern        string
	Weight         float64
	Scope          string
	Strength       string
	CommandContext string
	Description    string
	Enabled        bool
}

// NewUserRule compiles a user rule. Malformed patterns and scopes are
// rejected here so Detect never sees them.
func NewUserRule(spec UserRuleSpec) (types.DetectionRule, error) {
	if strings.TrimSpace(spec.ID) == "" {
		return types.DetectionRule{}, &ConfigError{Field: "id", Err: errors.New("rule id is empty")}
	}
	pat, err := regexp.Compile(spec.Pattern)
	if err != nil {
		return types.DetectionRule{}, &ConfigError{RuleID: spec.ID, Field: "pattern", Err: err}
	}
	scope, err := ParseRuleScope(spec.Scope)
	if err != nil {
		return types.DetectionRule{}, &ConfigError{RuleID: spec.ID, Field: "scope", Err: err}
	}
	strength, err := ParseStrength(spec.Strength)
	if err != nil {
		return types.DetectionRule{}, &ConfigError{RuleID: spec.ID, Field: "strength", Err: err}
	}
	var ctx *regexp.Regexp
	if spec.CommandContext != "" {
		ctx, err = regexp.Compile(spec.CommandContext)
		if err != nil {
			return types.DetectionRule{}, &ConfigError{RuleID: spec.ID, Field: "command_context", Err: err}
		}
	}
	return types.DetectionRule{
		ID:             spec.ID,
		Pattern:        pat,
		Weight:         types.ClampWeight(spec.Weight),
		Scope:          scope,
		Strength:       strength,
		Source:         types.UserDefined,
		CommandContext: ctx,
		Description:    spec.Description,
		Enabled:        spec.Enabled,
	}, nil
}

// ParseRuleScope parses "any_line", "first_lines:N", "last_lines:N",
// "full_block" or "preceding_command". An empty string means any_line.
func ParseRuleScope(s string) (types.RuleScope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, pre := range []struct {
		prefix string
		mk     func(int) types.RuleScope
	}{
		{"first_lines:", types.FirstLines},
		{"last_lines:", types.LastLines},
	} {
		if !strings.HasPrefix(s, pre.prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(s, pre.prefix))
		if err != nil || n <= 0 {
			return types.RuleScope{}, fmt.Errorf("invalid line count in scope %q", s)
		}
		return pre.mk(n), nil
	}
	switch s {
	case "", "any_line":
		return types.AnyLine(), nil
	case "full_block":
		return types.FullBlock(), nil
	case "preceding_command":
		return types.PrecedingCommand(), nil
	}
	return types.RuleScope{}, fmt.Errorf("unknown scope %q", s)
}

// ParseStrength parses a rule strength. An empty string means supporting.
func ParseStrength(s string) (types.RuleStrength, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "supporting":
		return types.Supporting, nil
	case "strong":
		return types.Strong, nil
	case "definitive":
		return types.Definitive, nil
	}
	return types.Supporting, fmt.Errorf("unknown strength %q", s)
}

// BuiltIn compiles a built-in rule. It panics on a bad pattern since built-in
// patterns are constants.
func BuiltIn(id, pattern string, weight float64, scope types.RuleScope, strength types.RuleStrength, desc string) types.DetectionRule {
	return types.DetectionRule{
		ID:          id,
		Pattern:     regexp.MustCompile(pattern),
		Weight:      types.ClampWeight(weight),
		Scope:       scope,
		Strength:    strength,
		Source:      types.BuiltIn,
		Description: desc,
		Enabled:     true,
	}
}

// WithCommand returns a copy of r gated on the preceding command.
func WithCommand(r types.DetectionRule, pattern string) types.DetectionRule {
	r.CommandContext = regexp.MustCompile(pattern)
	return r
}
