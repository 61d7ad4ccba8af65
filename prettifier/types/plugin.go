// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package types

import "context"

// DetectionSource distinguishes scored matches from forced dispatch.
type DetectionSource int

const (
	AutoDetected DetectionSource = iota
	TriggerInvoked
)

func (s DetectionSource) String() string {
	if s == TriggerInvoked {
		return "trigger"
	}
	return "auto"
}

// DetectionResult is the outcome of running one detector against one block.
type DetectionResult struct {
	FormatID     string
	Confidence   float64
	MatchedRules []string
	Source       DetectionSource
}

// Detector scores blocks for a single format.
type Detector interface {
	FormatID() string
	DisplayName() string
	// Detect returns nil when the block does not match.
	Detect(block ContentBlock) *DetectionResult
	// QuickMatch is a cheap pre-filter over a short prefix of the block.
	QuickMatch(firstLines []string) bool
}

// RuleLister is implemented by detectors backed by regex rules.
type RuleLister interface {
	Rules() []DetectionRule
}

// Capability is something a renderer needs from the host.
type Capability int

const (
	CapTextStyling Capability = iota
	CapInlineGraphics
	CapExternalCommand
	CapNetworkAccess
)

func (c Capability) String() string {
	switch c {
	case CapInlineGraphics:
		return "inline_graphics"
	case CapExternalCommand:
		return "external_command"
	case CapNetworkAccess:
		return "network_access"
	default:
		return "text_styling"
	}
}

// Renderer turns a block into styled output. Implementations hold only
// their own configuration and must be safe to call from several goroutines.
type Renderer interface {
	FormatID() string
	DisplayName() string
	Capabilities() []Capability
	Render(block ContentBlock, cfg RendererConfig) (RenderedContent, error)
	Badge() string
}

// AsyncRenderer is a renderer whose real work is slow (external process or
// network). The pipeline shows Placeholder immediately and runs
// RenderContext on a background goroutine.
type AsyncRenderer interface {
	Renderer
	Placeholder(block ContentBlock, cfg RendererConfig) RenderedContent
	RenderContext(ctx context.Context, block ContentBlock, cfg RendererConfig) (RenderedContent, error)
}

// HasCapability reports whether caps contains c.
func HasCapability(caps []Capability, c Capability) bool {
	for _, have := range caps {
		if have == c {
			return true
		}
	}
	return false
}
