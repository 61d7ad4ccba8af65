// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package types

import (
	"fmt"
	"regexp"
)

// ScopeKind selects which part of a block a rule is evaluated against.
type ScopeKind int

const (
	ScopeAnyLine ScopeKind = iota
	ScopeFirstLines
	ScopeLastLines
	ScopeFullBlock
	ScopePrecedingCommand
)

// RuleScope pairs a ScopeKind with its line count (FirstLines/LastLines only).
type RuleScope struct {
	Kind ScopeKind
	N    int
}

// Convenience constructors.
func AnyLine() RuleScope          { return RuleScope{Kind: ScopeAnyLine} }
func FirstLines(n int) RuleScope  { return RuleScope{Kind: ScopeFirstLines, N: n} }
func LastLines(n int) RuleScope   { return RuleScope{Kind: ScopeLastLines, N: n} }
func FullBlock() RuleScope        { return RuleScope{Kind: ScopeFullBlock} }
func PrecedingCommand() RuleScope { return RuleScope{Kind: ScopePrecedingCommand} }

func (s RuleScope) String() string {
	switch s.Kind {
	case ScopeFirstLines:
		return fmt.Sprintf("first_lines:%d", s.N)
	case ScopeLastLines:
		return fmt.Sprintf("last_lines:%d", s.N)
	case ScopeFullBlock:
		return "full_block"
	case ScopePrecedingCommand:
		return "preceding_command"
	default:
		return "any_line"
	}
}

// RuleStrength controls how much a single match can decide on its own.
type RuleStrength int

const (
	Supporting RuleStrength = iota
	Strong
	Definitive
)

func (s RuleStrength) String() string {
	switch s {
	case Definitive:
		return "definitive"
	case Strong:
		return "strong"
	default:
		return "supporting"
	}
}

// RuleSource records where a rule came from. Built-in rules can be disabled
// but not removed.
type RuleSource int

const (
	BuiltIn RuleSource = iota
	UserDefined
)

// DetectionRule is one weighted regex signal.
type DetectionRule struct {
	ID       string
	Pattern  *regexp.Regexp
	Weight   float64
	Scope    RuleScope
	Strength RuleStrength
	Source   RuleSource
	// CommandContext, when set, gates the rule on the block's preceding command.
	CommandContext *regexp.Regexp
	Description    string
	Enabled        bool
}

// ClampWeight keeps rule weights inside [0, 1].
func ClampWeight(w float64) float64 {
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}
