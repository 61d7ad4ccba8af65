// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package gutter computes the per-block indicators a host draws in the
// columns left of prettified output, and maps clicks back to blocks.
package gutter

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/prettify/prettifier/pipeline"
	"github.com/framegrace/prettify/prettifier/types"
)

// Width is the gutter width in cells.
const Width = 2

var badges = map[string]string{
	"markdown":    "\U0001F4DD",
	"json":        "{}",
	"diagrams":    "\U0001F4CA",
	"yaml":        "\U0001F4CB",
	"toml":        "\U0001F4CB",
	"xml":         "\U0001F4C4",
	"csv":         "\U0001F4C9",
	"table":       "\U0001F4C9",
	"sql_results": "\U0001F4C9",
	"diff":        "±",
	"log":         "\U0001F4DC",
	"stack_trace": "⚠",
}

// DefaultBadge marks formats without a dedicated glyph.
const DefaultBadge = "✦"

// BadgeFor maps a format id to its gutter glyph.
func BadgeFor(formatID string) string {
	if b, ok := badges[formatID]; ok {
		return b
	}
	return DefaultBadge
}

// Indicator is one visible block's gutter entry. Row is relative to the
// viewport.
type Indicator struct {
	Row      int
	Height   int
	Badge    string
	ViewMode types.ViewMode
	Failed   bool
	Hovered  bool
	BlockID  uint64
}

// Manager computes indicators and hit tests.
type Manager struct {
	Width int
}

// New returns a manager with the default width.
func New() *Manager {
	return &Manager{Width: Width}
}

// Indicators returns entries for blocks overlapping rows
// [viewportStart, viewportStart+height), clamped to the viewport.
func (m *Manager) Indicators(p *pipeline.Pipeline, viewportStart, height int) []Indicator {
	end := viewportStart + height
	var out []Indicator
	for _, b := range p.Blocks() {
		rows := b.Rows()
		if rows.End <= viewportStart || rows.Start >= end {
			continue
		}
		top := max(rows.Start, viewportStart)
		bottom := min(rows.End, end)
		out = append(out, m.IndicatorFor(b, top-viewportStart, bottom-top))
	}
	return out
}

// IndicatorFor builds the entry for b at a viewport row. Hosts that lay out
// rendered lines themselves use it with their own row and height.
func (m *Manager) IndicatorFor(b *pipeline.PrettifiedBlock, row, height int) Indicator {
	return Indicator{
		Row:      row,
		Height:   height,
		Badge:    BadgeFor(b.Detection.FormatID),
		ViewMode: b.ViewMode(),
		Failed:   b.RenderErr != nil,
		BlockID:  b.ID,
	}
}

// HitTest returns the block whose indicator covers the cell.
func (m *Manager) HitTest(col, row int, inds []Indicator) (uint64, bool) {
	if col < 0 || col >= m.Width {
		return 0, false
	}
	for _, ind := range inds {
		if row >= ind.Row && row < ind.Row+ind.Height {
			return ind.BlockID, true
		}
	}
	return 0, false
}

// Hover marks the indicator under the cell, clearing the rest.
func (m *Manager) Hover(col, row int, inds []Indicator) {
	id, ok := m.HitTest(col, row, inds)
	for i := range inds {
		inds[i].Hovered = ok && inds[i].BlockID == id
	}
}

// Style picks the indicator colours: accent for rendered blocks, dim for
// source view and for failed renders, reversed while hovered.
func Style(ind Indicator, theme types.ThemeColors) tcell.Style {
	fg := theme.AccentColor()
	if ind.ViewMode == types.ViewSource || ind.Failed {
		fg = theme.DimColor()
	}
	st := tcell.StyleDefault.Foreground(fg).Background(theme.BG)
	if ind.Hovered {
		st = st.Reverse(true)
	}
	return st
}

// Cells returns the text drawn on one row of an indicator: the badge on the
// first row, a bar below it, padded to width.
func (m *Manager) Cells(ind Indicator, line int) string {
	text := "│"
	if line == 0 {
		text = ind.Badge
	}
	if w := runewidth.StringWidth(text); w < m.Width {
		text += runewidth.FillRight("", m.Width-w)
	}
	return runewidth.Truncate(text, m.Width, "")
}
