// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package render holds helpers shared by the format renderers: segment
// builders, box tables, the tree arena, code highlighting and ANSI
// conversion.
package render

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/prettify/prettifier/tabular"
	"github.com/framegrace/prettify/prettifier/types"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// URLPattern finds http(s) links inside values and log lines.
var URLPattern = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

// Seg returns a coloured segment.
func Seg(text string, fg tcell.Color) types.StyledSegment {
	return types.Colored(text, fg)
}

// BoldSeg returns a bold coloured segment.
func BoldSeg(text string, fg tcell.Color) types.StyledSegment {
	s := types.Colored(text, fg)
	s.Bold = true
	return s
}

// ItalicSeg returns an italic coloured segment.
func ItalicSeg(text string, fg tcell.Color) types.StyledSegment {
	s := types.Colored(text, fg)
	s.Italic = true
	return s
}

// LinkSeg returns an underlined segment that carries url.
func LinkSeg(text, url string, fg tcell.Color) types.StyledSegment {
	s := types.Colored(text, fg)
	s.Underline = true
	s.LinkURL = url
	return s
}

// Truncate cuts s to at most w cells, ending in an ellipsis when cut.
func Truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= w {
		return s
	}
	return runewidth.Truncate(s, w, Ellipsis)
}

// Align pads s to exactly w cells, truncating first if needed.
func Align(s string, w int, a tabular.Align) string {
	s = Truncate(s, w)
	gap := w - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	switch a {
	case tabular.AlignRight:
		return strings.Repeat(" ", gap) + s
	case tabular.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

// Guides returns the indentation guide for depth, one "│ " per level.
func Guides(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("│ ", depth)
}

// Summary describes a collapsed container, e.g. "3 keys" or "1 item".
func Summary(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// Source returns the block as plain lines with identity mapping. Renderers
// use it for lines they leave untouched; the pipeline uses it as the
// fallback view.
func Source(block types.ContentBlock) types.RenderedContent {
	var rc types.RenderedContent
	for i, ln := range block.Lines {
		rc.Push(types.PlainLine(ln), i)
	}
	return rc
}

// Linkify splits text into segments, styling URLs as links and the rest
// with fg.
func Linkify(text string, fg, link tcell.Color) []types.StyledSegment {
	locs := URLPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []types.StyledSegment{Seg(text, fg)}
	}
	var out []types.StyledSegment
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			out = append(out, Seg(text[last:loc[0]], fg))
		}
		url := text[loc[0]:loc[1]]
		out = append(out, LinkSeg(url, url, link))
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, Seg(text[last:], fg))
	}
	return out
}

// LineIndex maps byte offsets of a text to zero-based line numbers.
type LineIndex []int

// NewLineIndex records the start offset of every line in text.
func NewLineIndex(text string) LineIndex {
	idx := LineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// Line returns the line containing offset.
func (li LineIndex) Line(offset int64) int {
	n := sort.Search(len(li), func(i int) bool { return int64(li[i]) > offset })
	return max(n-1, 0)
}

// Fit truncates or pads segs to exactly w cells. Padding is unstyled.
func Fit(segs []types.StyledSegment, w int) []types.StyledSegment {
	out := make([]types.StyledSegment, 0, len(segs)+1)
	used := 0
	for _, s := range segs {
		sw := runewidth.StringWidth(s.Text)
		if used+sw > w {
			s.Text = Truncate(s.Text, w-used)
			sw = runewidth.StringWidth(s.Text)
			if sw > 0 {
				out = append(out, s)
			}
			used += sw
			break
		}
		out = append(out, s)
		used += sw
	}
	if used < w {
		out = append(out, types.Plain(strings.Repeat(" ", w-used)))
	}
	return out
}
