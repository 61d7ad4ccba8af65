// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/detect/detect.go
// Summary: Weighted regex scoring engine shared by every built-in detector.

// Package detect implements the regex-weighted detector. A RegexDetector is
// immutable once built; rule merges and overrides produce new detectors so a
// failing reload never leaves a half-updated rule set behind.
package detect

import (
	"fmt"
	"strings"

	clog "github.com/charmbracelet/log"
	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/types"
)

var logger = logging.For("DETECT")

// QuickMatchLines is the prefix length QuickMatch inspects.
const QuickMatchLines = 30

// scoreEpsilon absorbs float rounding so a rule set summing to exactly the
// threshold is accepted.
const scoreEpsilon = 1e-9

// RegexDetector scores blocks against one format's rule set.
type RegexDetector struct {
	formatID     string
	displayName  string
	rules        []types.DetectionRule
	threshold    float64
	minRules     int
	shortCircuit bool
}

// Builder constructs a RegexDetector.
type Builder struct {
	d RegexDetector
}

// NewBuilder starts a detector with threshold 0.6, one required rule and
// definitive short-circuit enabled.
func NewBuilder(formatID, displayName string) *Builder {
	return &Builder{d: RegexDetector{
		formatID:     formatID,
		displayName:  displayName,
		threshold:    0.6,
		minRules:     1,
		shortCircuit: true,
	}}
}

// Rule appends a rule.
func (b *Builder) Rule(r types.DetectionRule) *Builder {
	b.d.rules = append(b.d.rules, r)
	return b
}

// Rules appends several rules.
func (b *Builder) Rules(rs ...types.DetectionRule) *Builder {
	b.d.rules = append(b.d.rules, rs...)
	return b
}

// Threshold sets the minimum confidence, clamped into [0, 1].
func (b *Builder) Threshold(t float64) *Builder {
	b.d.threshold = types.ClampWeight(t)
	return b
}

// MinMatchingRules sets how many rules must fire.
func (b *Builder) MinMatchingRules(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.d.minRules = n
	return b
}

// DefinitiveShortCircuit toggles the Definitive fast path.
func (b *Builder) DefinitiveShortCircuit(on bool) *Builder {
	b.d.shortCircuit = on
	return b
}

// Build returns the detector. The builder may be reused afterwards.
func (b *Builder) Build() *RegexDetector {
	d := b.d
	d.rules = cloneRules(b.d.rules)
	return &d
}

func (d *RegexDetector) FormatID() string    { return d.formatID }
func (d *RegexDetector) DisplayName() string { return d.displayName }

// Threshold returns the per-detector confidence threshold.
func (d *RegexDetector) Threshold() float64 { return d.threshold }

// MinMatchingRules returns the minimum number of firing rules.
func (d *RegexDetector) MinMatchingRules() int { return d.minRules }

// Rules returns a copy of the effective rule set.
func (d *RegexDetector) Rules() []types.DetectionRule {
	return cloneRules(d.rules)
}

// Rule returns the rule with the given id.
func (d *RegexDetector) Rule(id string) (types.DetectionRule, bool) {
	for _, r := range d.rules {
		if r.ID == id {
			return r, true
		}
	}
	return types.DetectionRule{}, false
}

// Detect scores block. Rules are evaluated in declaration order; order only
// matters for when a Definitive rule cuts scoring short.
func (d *RegexDetector) Detect(block types.ContentBlock) *types.DetectionResult {
	if block.IsEmpty() {
		return nil
	}

	var (
		total   float64
		matched []string
	)
	full := block.FullText()

	for i := range d.rules {
		rule := &d.rules[i]
		if !rule.Enabled || rule.Pattern == nil {
			continue
		}
		if rule.CommandContext != nil {
			if !block.HasCommand() || !rule.CommandContext.MatchString(block.PrecedingCommand) {
				continue
			}
		}
		if !ruleMatches(rule, block, full) {
			continue
		}

		total += rule.Weight
		matched = append(matched, rule.ID)

		if d.shortCircuit && rule.Strength == types.Definitive {
			logger.Debug("definitive match", "format", d.formatID, "rule", rule.ID)
			return &types.DetectionResult{
				FormatID:     d.formatID,
				Confidence:   1.0,
				MatchedRules: []string{rule.ID},
				Source:       types.AutoDetected,
			}
		}
	}

	if len(matched) < d.minRules {
		logger.Debug("too few rules", "format", d.formatID, "matched", len(matched), "need", d.minRules)
		return nil
	}
	if total+scoreEpsilon < d.threshold {
		if logger.GetLevel() <= clog.DebugLevel {
			logger.Debug("below threshold", "format", d.formatID,
				"confidence", fmt.Sprintf("%.2f", total), "threshold", d.threshold, "rules", d.ruleTrace(matched))
		}
		return nil
	}

	confidence := total
	if confidence > 1 {
		confidence = 1
	}
	logger.Debug("detect pass", "format", d.formatID,
		"confidence", fmt.Sprintf("%.2f", confidence), "matched", strings.Join(matched, ","))
	return &types.DetectionResult{
		FormatID:     d.formatID,
		Confidence:   confidence,
		MatchedRules: matched,
		Source:       types.AutoDetected,
	}
}

// QuickMatch tests only enabled Strong or Definitive rules with AnyLine or
// FirstLines scope against at most QuickMatchLines of the given prefix.
//
// Detectors that rely on LastLines, FullBlock or PrecedingCommand rules can be
// skipped here even though Detect would have matched. That gap is accepted in
// exchange for a cheap pre-filter and must not be closed by widening the rule
// selection.
func (d *RegexDetector) QuickMatch(firstLines []string) bool {
	if len(firstLines) > QuickMatchLines {
		firstLines = firstLines[:QuickMatchLines]
	}
	for i := range d.rules {
		rule := &d.rules[i]
		if !rule.Enabled || rule.Pattern == nil {
			continue
		}
		if rule.Strength == types.Supporting {
			continue
		}
		switch rule.Scope.Kind {
		case types.ScopeAnyLine, types.ScopeFirstLines:
		default:
			continue
		}
		for _, line := range firstLines {
			if rule.Pattern.MatchString(line) {
				return true
			}
		}
	}
	return false
}

func ruleMatches(rule *types.DetectionRule, block types.ContentBlock, full string) bool {
	switch rule.Scope.Kind {
	case types.ScopeFullBlock:
		return rule.Pattern.MatchString(full)
	case types.ScopePrecedingCommand:
		return block.HasCommand() && rule.Pattern.MatchString(block.PrecedingCommand)
	case types.ScopeFirstLines:
		return anyLineMatches(rule, block.FirstLines(rule.Scope.N))
	case types.ScopeLastLines:
		return anyLineMatches(rule, block.LastLines(rule.Scope.N))
	default:
		return anyLineMatches(rule, block.Lines)
	}
}

func anyLineMatches(rule *types.DetectionRule, lines []string) bool {
	for _, l := range lines {
		if rule.Pattern.MatchString(l) {
			return true
		}
	}
	return false
}

func (d *RegexDetector) ruleTrace(matched []string) string {
	hit := make(map[string]bool, len(matched))
	for _, id := range matched {
		hit[id] = true
	}
	var b strings.Builder
	for _, r := range d.rules {
		if !r.Enabled {
			continue
		}
		state := "miss"
		if hit[r.ID] {
			state = "HIT"
		}
		fmt.Fprintf(&b, " %s(%.2f)=%s", r.ID, r.Weight, state)
	}
	return b.String()
}

func cloneRules(rs []types.DetectionRule) []types.DetectionRule {
	if rs == nil {
		return nil
	}
	out := make([]types.DetectionRule, len(rs))
	copy(out, rs)
	return out
}

var _ types.Detector = (*RegexDetector)(nil)
var _ types.RuleLister = (*RegexDetector)(nil)
