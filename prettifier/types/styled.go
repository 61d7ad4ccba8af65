// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package types

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// StyledSegment is a run of text sharing one style. tcell.ColorDefault in FG
// or BG means "inherit the terminal colour".
type StyledSegment struct {
	Text          string
	FG            tcell.Color
	BG            tcell.Color
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	LinkURL       string
}

// Plain returns an unstyled segment.
func Plain(text string) StyledSegment {
	return StyledSegment{Text: text, FG: tcell.ColorDefault, BG: tcell.ColorDefault}
}

// Colored returns a segment with a foreground colour.
func Colored(text string, fg tcell.Color) StyledSegment {
	return StyledSegment{Text: text, FG: fg, BG: tcell.ColorDefault}
}

// Style converts the segment attributes into a tcell style for grid hosts.
func (s StyledSegment) Style() tcell.Style {
	st := tcell.StyleDefault.
		Foreground(s.FG).
		Background(s.BG).
		Bold(s.Bold).
		Italic(s.Italic).
		Underline(s.Underline).
		StrikeThrough(s.Strikethrough)
	if s.LinkURL != "" {
		st = st.Url(s.LinkURL)
	}
	return st
}

// IsPlain reports whether the segment carries no styling at all.
func (s StyledSegment) IsPlain() bool {
	return s.FG == tcell.ColorDefault && s.BG == tcell.ColorDefault &&
		!s.Bold && !s.Italic && !s.Underline && !s.Strikethrough && s.LinkURL == ""
}

// StyledLine is one rendered display line.
type StyledLine struct {
	Segments []StyledSegment
}

// Line builds a StyledLine from segments.
func Line(segs ...StyledSegment) StyledLine {
	return StyledLine{Segments: segs}
}

// PlainLine wraps text into an unstyled line.
func PlainLine(text string) StyledLine {
	return StyledLine{Segments: []StyledSegment{Plain(text)}}
}

// PlainText concatenates the segment texts.
func (l StyledLine) PlainText() string {
	if len(l.Segments) == 1 {
		return l.Segments[0].Text
	}
	var b strings.Builder
	for _, s := range l.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Width returns the display width in terminal cells.
func (l StyledLine) Width() int {
	w := 0
	for _, s := range l.Segments {
		w += runewidth.StringWidth(s.Text)
	}
	return w
}

// LineMapping relates a rendered line to the source line it came from.
// HasSource is false for decorative lines that exist only in rendered form.
// A collapsed summary stands for Source through Source+Span.
type LineMapping struct {
	Rendered  int
	Source    int
	Span      int
	HasSource bool
}

// Mapped returns a mapping to a source line.
func Mapped(rendered, source int) LineMapping {
	return LineMapping{Rendered: rendered, Source: source, HasSource: true}
}

// MappedSpan returns a many-to-one mapping of source lines first..last.
func MappedSpan(rendered, first, last int) LineMapping {
	return LineMapping{Rendered: rendered, Source: first, Span: max(last-first, 0), HasSource: true}
}

// Covers reports whether source line i is shown by this rendered line.
func (m LineMapping) Covers(i int) bool {
	return m.HasSource && i >= m.Source && i <= m.Source+m.Span
}

// Unmapped returns a mapping for a rendered-only line.
func Unmapped(rendered int) LineMapping {
	return LineMapping{Rendered: rendered}
}

// InlineGraphic is a raster image placed over the rendered text grid.
type InlineGraphic struct {
	Row         int
	Col         int
	WidthCells  int
	HeightCells int
	RGBA        []byte
	PixelWidth  int
	PixelHeight int
}

// RenderedContent is the immutable output of one renderer call.
type RenderedContent struct {
	Lines    []StyledLine
	Mapping  []LineMapping
	Graphics []InlineGraphic
	Badge    string
}

// Push appends a line with its mapping. source < 0 records an unmapped line.
func (rc *RenderedContent) Push(line StyledLine, source int) {
	idx := len(rc.Lines)
	rc.Lines = append(rc.Lines, line)
	if source < 0 {
		rc.Mapping = append(rc.Mapping, Unmapped(idx))
		return
	}
	rc.Mapping = append(rc.Mapping, Mapped(idx, source))
}

// PushSpan appends a line that stands for source lines first..last.
func (rc *RenderedContent) PushSpan(line StyledLine, first, last int) {
	rc.Mapping = append(rc.Mapping, MappedSpan(len(rc.Lines), first, last))
	rc.Lines = append(rc.Lines, line)
}

// Text joins the plain text of every rendered line with "\n".
func (rc RenderedContent) Text() string {
	parts := make([]string, len(rc.Lines))
	for i, l := range rc.Lines {
		parts[i] = l.PlainText()
	}
	return strings.Join(parts, "\n")
}

// ViewMode selects which form of a block is displayed.
type ViewMode int

const (
	ViewRendered ViewMode = iota
	ViewSource
)

func (m ViewMode) String() string {
	if m == ViewSource {
		return "source"
	}
	return "rendered"
}
