// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package types holds the value types shared by every stage of the
// prettifier: captured blocks, detection rules and results, styled render
// output, theme roles and the Detector/Renderer plugin interfaces.
package types

import (
	"fmt"
	"strings"
	"time"
)

// RowRange is a half-open range [Start, End) of absolute terminal rows.
type RowRange struct {
	Start int
	End   int
}

// Len returns the number of rows covered.
func (r RowRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether row lies inside the range.
func (r RowRange) Contains(row int) bool {
	return row >= r.Start && row < r.End
}

// Covers reports whether r fully contains other.
func (r RowRange) Covers(other RowRange) bool {
	return r.Start <= other.Start && r.End >= other.End
}

// Overlaps reports whether the two ranges share at least one row.
func (r RowRange) Overlaps(other RowRange) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r RowRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// ContentBlock is a captured slice of terminal output. Blocks are built once
// by the boundary detector and treated as immutable afterwards.
type ContentBlock struct {
	Lines []string
	// PrecedingCommand is the shell command that produced the output, or ""
	// when unknown.
	PrecedingCommand string
	Rows             RowRange
	CreatedAt        time.Time
}

// NewBlock builds a block whose row range starts at startRow and spans one
// row per line.
func NewBlock(lines []string, command string, startRow int) ContentBlock {
	return ContentBlock{
		Lines:            lines,
		PrecedingCommand: command,
		Rows:             RowRange{Start: startRow, End: startRow + len(lines)},
		CreatedAt:        time.Now(),
	}
}

// IsEmpty reports whether the block has no lines.
func (b ContentBlock) IsEmpty() bool {
	return len(b.Lines) == 0
}

// HasCommand reports whether a preceding command is known.
func (b ContentBlock) HasCommand() bool {
	return b.PrecedingCommand != ""
}

// FullText joins all lines with "\n".
func (b ContentBlock) FullText() string {
	return strings.Join(b.Lines, "\n")
}

// FirstLines returns up to n leading lines.
func (b ContentBlock) FirstLines(n int) []string {
	if n >= len(b.Lines) {
		return b.Lines
	}
	if n < 0 {
		n = 0
	}
	return b.Lines[:n]
}

// LastLines returns up to n trailing lines.
func (b ContentBlock) LastLines(n int) []string {
	if n >= len(b.Lines) {
		return b.Lines
	}
	if n < 0 {
		n = 0
	}
	return b.Lines[len(b.Lines)-n:]
}

// Slice returns a sub-block covering lines [start, end). Rows are shifted so
// the sub-block keeps absolute row addressing.
func (b ContentBlock) Slice(start, end int) ContentBlock {
	if start < 0 {
		start = 0
	}
	if end > len(b.Lines) {
		end = len(b.Lines)
	}
	if start > end {
		start = end
	}
	return ContentBlock{
		Lines:            b.Lines[start:end],
		PrecedingCommand: b.PrecedingCommand,
		Rows:             RowRange{Start: b.Rows.Start + start, End: b.Rows.Start + end},
		CreatedAt:        b.CreatedAt,
	}
}
