// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package detectors

import (
	"github.com/framegrace/prettify/prettifier/detect"
	"github.com/framegrace/prettify/prettifier/tabular"
	"github.com/framegrace/prettify/prettifier/types"
)

// Shape thresholds below which a block is not treated as a table.
const (
	pipeMinScore  = 0.7
	spaceMinScore = 0.6
	tableMinLines = 3
)

// TableDetector recognises column-shaped output (pipe separated or space
// aligned) by structure rather than regex rules. Markdown pipe tables are
// left to the markdown detector.
type TableDetector struct{}

// NewTable returns the table shape detector.
func NewTable() *TableDetector { return &TableDetector{} }

func (*TableDetector) FormatID() string    { return Table }
func (*TableDetector) DisplayName() string { return "Table" }

func (*TableDetector) Detect(block types.ContentBlock) *types.DetectionResult {
	lines := nonBlankLines(block.Lines)
	if len(lines) < tableMinLines {
		return nil
	}
	if s := (tabular.Pipe{}).Score(lines); s >= pipeMinScore {
		return &types.DetectionResult{FormatID: Table, Confidence: clamp1(s), MatchedRules: []string{"table_pipe"}}
	}
	if s := (tabular.SpaceAligned{}).Score(lines); s >= spaceMinScore {
		return &types.DetectionResult{FormatID: Table, Confidence: clamp1(s), MatchedRules: []string{"table_space_aligned"}}
	}
	return nil
}

func (*TableDetector) QuickMatch(firstLines []string) bool {
	return shapePrefix(firstLines, func(ln string) bool {
		return (tabular.Pipe{}).Compatible(ln) || (tabular.SpaceAligned{}).Compatible(ln)
	})
}

// CSVDetector recognises comma or tab separated values.
type CSVDetector struct{}

// NewCSV returns the delimited-values detector.
func NewCSV() *CSVDetector { return &CSVDetector{} }

func (*CSVDetector) FormatID() string    { return CSV }
func (*CSVDetector) DisplayName() string { return "CSV" }

func (*CSVDetector) Detect(block types.ContentBlock) *types.DetectionResult {
	lines := nonBlankLines(block.Lines)
	if len(lines) < tableMinLines {
		return nil
	}
	delim, _, score := tabular.Delimiter(lines)
	if delim == 0 {
		return nil
	}
	id := "csv_comma"
	if delim == '\t' {
		id = "csv_tab"
	}
	return &types.DetectionResult{FormatID: CSV, Confidence: clamp1(score), MatchedRules: []string{id}}
}

func (*CSVDetector) QuickMatch(firstLines []string) bool {
	return shapePrefix(firstLines, (tabular.CSV{}).Compatible)
}

// shapePrefix reports whether at least two non-blank lines of the prefix are
// accepted by ok and no non-blank line is rejected.
func shapePrefix(lines []string, ok func(string) bool) bool {
	if len(lines) > detect.QuickMatchLines {
		lines = lines[:detect.QuickMatchLines]
	}
	n := 0
	for _, ln := range nonBlankLines(lines) {
		if !ok(ln) {
			return false
		}
		n++
	}
	return n >= 2
}

func nonBlankLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if isBlank(ln) {
			continue
		}
		out = append(out, ln)
	}
	return out
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}

func clamp1(v float64) float64 { return min(v, 1) }

var (
	_ types.Detector = (*TableDetector)(nil)
	_ types.Detector = (*CSVDetector)(nil)
)
