// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package detectors

import (
	"regexp"
	"strings"

	"github.com/framegrace/prettify/prettifier/detect"
)

// DiagramTags are the fence languages routed to the diagram renderer.
var DiagramTags = []string{
	"mermaid", "plantuml", "graphviz", "dot", "d2", "ditaa",
	"svgbob", "erd", "vegalite", "wavedrom", "excalidraw",
}

// NewDiagrams detects fenced diagram sources. extraTags adds fence
// languages on top of DiagramTags; duplicates are ignored.
func NewDiagrams(extraTags []string) *detect.RegexDetector {
	tags := append([]string(nil), DiagramTags...)
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		seen[t] = true
	}
	for _, t := range extraTags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, regexp.QuoteMeta(t))
	}
	pattern := "^```(" + strings.Join(tags, "|") + `)\s*$`
	return detect.NewBuilder(Diagrams, "Diagrams").
		Threshold(0.8).
		MinMatchingRules(1).
		Rule(rule("diagram_fenced_block", pattern, 1.0, anyLine, definitive, "Fenced code block tagged with a diagram language")).
		Build()
}

// DiagramLanguage returns the fence tag of the first diagram fence in lines.
func DiagramLanguage(lines []string) (string, bool) {
	for _, ln := range lines {
		t := strings.TrimSpace(ln)
		if !strings.HasPrefix(t, "```") {
			continue
		}
		tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "```")))
		for _, known := range DiagramTags {
			if tag == known {
				return tag, true
			}
		}
	}
	return "", false
}
