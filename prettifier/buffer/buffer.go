// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/buffer/buffer.go
// Summary: Source/rendered pair for one prettified block.
//
// The source block is never modified. Rendered output is optional: every
// accessor falls back to plain source lines, so a block is displayable
// before, during and after a failed render. Blocks above VirtualThreshold
// lines keep only a rendered window; lines outside it show as source.

package buffer

import (
	"sort"

	"github.com/framegrace/prettify/prettifier/types"
)

// VirtualThreshold is the line count above which only a visible window is
// rendered.
const VirtualThreshold = 10_000

// DualViewBuffer holds a block's source and its latest render.
type DualViewBuffer struct {
	source types.ContentBlock
	hash   uint64
	mode   types.ViewMode

	rendered *types.RenderedContent
	width    int

	// For virtual buffers the render covers source[winStart:winEnd] and its
	// mapping is relative to winStart.
	winStart, winEnd int
}

// New wraps block. The view starts in rendered mode.
func New(block types.ContentBlock) *DualViewBuffer {
	return &DualViewBuffer{
		source: block,
		hash:   ContentHash(block.Lines),
		mode:   types.ViewRendered,
		winEnd: len(block.Lines),
	}
}

// Source returns the original block.
func (b *DualViewBuffer) Source() types.ContentBlock { return b.source }

// SourceText joins the source lines with "\n", exactly as captured.
func (b *DualViewBuffer) SourceText() string { return b.source.FullText() }

// ContentHash returns the hash of the source lines.
func (b *DualViewBuffer) ContentHash() uint64 { return b.hash }

// IsVirtual reports whether the block is large enough for windowed rendering.
func (b *DualViewBuffer) IsVirtual() bool { return len(b.source.Lines) > VirtualThreshold }

// ViewMode returns the current view.
func (b *DualViewBuffer) ViewMode() types.ViewMode { return b.mode }

// SetViewMode selects a view.
func (b *DualViewBuffer) SetViewMode(m types.ViewMode) { b.mode = m }

// ToggleView flips between source and rendered view.
func (b *DualViewBuffer) ToggleView() {
	if b.mode == types.ViewRendered {
		b.mode = types.ViewSource
	} else {
		b.mode = types.ViewRendered
	}
}

// SetRendered stores a render of the whole block made at width.
func (b *DualViewBuffer) SetRendered(r types.RenderedContent, width int) {
	b.rendered = &r
	b.width = width
	b.winStart, b.winEnd = 0, len(b.source.Lines)
}

// SetWindow stores a render of source lines [offset, offset+n) where n is
// the number of lines the renderer was given. Mapping sources in r are
// relative to offset.
func (b *DualViewBuffer) SetWindow(offset, n int, r types.RenderedContent, width int) {
	offset = min(max(offset, 0), len(b.source.Lines))
	end := min(offset+max(n, 0), len(b.source.Lines))
	b.rendered = &r
	b.width = width
	b.winStart, b.winEnd = offset, end
}

// ClearRendered drops the render; the buffer shows source until the next one.
func (b *DualViewBuffer) ClearRendered() {
	b.rendered = nil
	b.width = 0
	b.winStart, b.winEnd = 0, len(b.source.Lines)
}

// Rendered returns the stored render, if any.
func (b *DualViewBuffer) Rendered() (types.RenderedContent, bool) {
	if b.rendered == nil {
		return types.RenderedContent{}, false
	}
	return *b.rendered, true
}

// RenderedWidth is the width of the stored render, 0 when there is none.
func (b *DualViewBuffer) RenderedWidth() int { return b.width }

// NeedsRender reports whether no render exists or it was made at a
// different width.
func (b *DualViewBuffer) NeedsRender(width int) bool {
	return b.rendered == nil || b.width != width
}

// Window returns the source range covered by the stored render.
func (b *DualViewBuffer) Window() (start, end int, ok bool) {
	if b.rendered == nil {
		return 0, 0, false
	}
	return b.winStart, b.winEnd, true
}

// CoversWindow reports whether the stored render at width covers source
// lines [start, end).
func (b *DualViewBuffer) CoversWindow(start, end, width int) bool {
	if b.NeedsRender(width) {
		return false
	}
	return start >= b.winStart && end <= b.winEnd
}

func (b *DualViewBuffer) showRendered() bool {
	return b.mode == types.ViewRendered && b.rendered != nil
}

// DisplayLineCount is the number of lines DisplayLines returns.
func (b *DualViewBuffer) DisplayLineCount() int {
	if !b.showRendered() {
		return len(b.source.Lines)
	}
	return len(b.source.Lines) - (b.winEnd - b.winStart) + len(b.rendered.Lines)
}

// DisplayLines returns the lines for the current view.
func (b *DualViewBuffer) DisplayLines() []types.StyledLine {
	return b.DisplayLinesRange(0, b.DisplayLineCount())
}

// DisplayLinesRange returns display lines [start, end), clamped.
func (b *DualViewBuffer) DisplayLinesRange(start, end int) []types.StyledLine {
	total := b.DisplayLineCount()
	start = max(start, 0)
	end = min(end, total)
	if start >= end {
		return nil
	}
	out := make([]types.StyledLine, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, b.displayLine(i))
	}
	return out
}

func (b *DualViewBuffer) displayLine(i int) types.StyledLine {
	if !b.showRendered() {
		return types.PlainLine(b.source.Lines[i])
	}
	if i < b.winStart {
		return types.PlainLine(b.source.Lines[i])
	}
	if k := i - b.winStart; k < len(b.rendered.Lines) {
		return b.rendered.Lines[k]
	}
	return types.PlainLine(b.source.Lines[i-len(b.rendered.Lines)+(b.winEnd-b.winStart)])
}

// RenderedText is the plain text of the rendered view, false when nothing
// has been rendered.
func (b *DualViewBuffer) RenderedText() (string, bool) {
	if b.rendered == nil {
		return "", false
	}
	if b.winStart == 0 && b.winEnd == len(b.source.Lines) {
		return b.rendered.Text(), true
	}
	saved := b.mode
	b.mode = types.ViewRendered
	lines := b.DisplayLines()
	b.mode = saved
	rc := types.RenderedContent{Lines: lines}
	return rc.Text(), true
}

// Graphics returns the inline graphics of the rendered view with rows in
// display coordinates. Source view has none.
func (b *DualViewBuffer) Graphics() []types.InlineGraphic {
	if !b.showRendered() || len(b.rendered.Graphics) == 0 {
		return nil
	}
	out := make([]types.InlineGraphic, len(b.rendered.Graphics))
	copy(out, b.rendered.Graphics)
	for i := range out {
		out[i].Row += b.winStart
	}
	return out
}

// RenderedToSourceLine maps a rendered-view line to its source line.
func (b *DualViewBuffer) RenderedToSourceLine(i int) (int, bool) {
	if b.rendered == nil || i < 0 {
		return 0, false
	}
	if i < b.winStart {
		return i, true
	}
	k := i - b.winStart
	if k < len(b.rendered.Lines) {
		for _, m := range b.rendered.Mapping {
			if m.Rendered == k {
				if !m.HasSource {
					return 0, false
				}
				return m.Source + b.winStart, true
			}
		}
		return 0, false
	}
	src := i - len(b.rendered.Lines) + (b.winEnd - b.winStart)
	if src >= len(b.source.Lines) {
		return 0, false
	}
	return src, true
}

// SourceToRenderedLines lists the rendered-view lines showing source line i,
// in ascending order.
func (b *DualViewBuffer) SourceToRenderedLines(i int) []int {
	if b.rendered == nil || i < 0 || i >= len(b.source.Lines) {
		return nil
	}
	if i < b.winStart {
		return []int{i}
	}
	if i >= b.winEnd {
		return []int{i - (b.winEnd - b.winStart) + len(b.rendered.Lines)}
	}
	var out []int
	for _, m := range b.rendered.Mapping {
		if m.Covers(i - b.winStart) {
			out = append(out, m.Rendered+b.winStart)
		}
	}
	sort.Ints(out)
	return out
}
