// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/tabular"
	"github.com/framegrace/prettify/prettifier/types"
)

// TableStyle selects the border character set.
type TableStyle int

const (
	StyleRounded TableStyle = iota
	StyleUnicode
	StyleASCII
)

// ParseTableStyle maps a config value to a style; unknown values are
// rounded.
func ParseTableStyle(s string) TableStyle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unicode", "square":
		return StyleUnicode
	case "ascii":
		return StyleASCII
	default:
		return StyleRounded
	}
}

type boxChars struct {
	topLeft, topTee, topRight          rune
	midLeft, cross, midRight           rune
	bottomLeft, bottomTee, bottomRight rune
	horizontal, vertical               rune
}

func charsFor(s TableStyle) boxChars {
	switch s {
	case StyleASCII:
		return boxChars{'+', '+', '+', '+', '+', '+', '+', '+', '+', '-', '|'}
	case StyleUnicode:
		return boxChars{'┌', '┬', '┐', '├', '┼', '┤', '└', '┴', '┘', '─', '│'}
	default:
		return boxChars{'╭', '┬', '╮', '├', '┼', '┤', '╰', '┴', '╯', '─', '│'}
	}
}

// Box draws a tabular.Table with borders. Rows map back to the source lines
// recorded in Table.SourceRows; border lines are rendered-only.
type Box struct {
	Style TableStyle
	Theme types.ThemeColors
	// ColorColumns tints data cells by inferred column type.
	ColorColumns bool
	// Stripe shades every other data row when there are at least
	// StripeMinRows of them.
	Stripe bool
}

// StripeMinRows is the smallest data row count that gets striping.
const StripeMinRows = 5

// BoxFrom reads table_style, color_columns and stripe from a renderer's
// config table. Theme is filled in at render time.
func BoxFrom(opts config.Section, defaultStyle string) Box {
	return Box{
		Style:        ParseTableStyle(opts.GetString("table_style", defaultStyle)),
		ColorColumns: opts.GetBool("color_columns", true),
		Stripe:       opts.GetBool("stripe", true),
	}
}

// ColumnWidths returns the natural width of each column, shrunk
// proportionally when the table would not fit in width. Every column keeps
// at least one cell.
func ColumnWidths(t *tabular.Table, width int) []int {
	n := t.Columns()
	widths := make([]int, n)
	for _, row := range t.Rows {
		for ci := 0; ci < n && ci < len(row); ci++ {
			widths[ci] = max(widths[ci], runewidth.StringWidth(row[ci]))
		}
	}
	content := 0
	for i := range widths {
		widths[i] = max(widths[i], 1)
		content += widths[i]
	}
	// n+1 vertical bars plus one space of padding either side of each cell.
	overhead := n + 1 + n*2
	if width > 0 && overhead+content > width {
		if avail := width - overhead; avail > 0 {
			scale := float64(avail) / float64(content)
			for i, w := range widths {
				widths[i] = max(int(float64(w)*scale), 1)
			}
		}
	}
	return widths
}

// Render appends the table to rc.
func (b Box) Render(rc *types.RenderedContent, t *tabular.Table, width int) {
	if t == nil || t.Columns() == 0 || len(t.Rows) == 0 {
		return
	}
	widths := ColumnWidths(t, width)
	ch := charsFor(b.Style)
	border := b.Theme.DimColor()

	var colTypes []tabular.ColumnType
	if b.ColorColumns {
		colTypes = tabular.ClassifyColumns(t)
	}
	dataRows := len(t.Rows)
	if t.Header >= 0 {
		dataRows--
	}
	stripe := b.Stripe && dataRows >= StripeMinRows

	rc.Push(b.hline(widths, ch.topLeft, ch.topTee, ch.topRight, ch.horizontal, border), -1)
	dataIdx := 0
	for ri, row := range t.Rows {
		src := -1
		if ri < len(t.SourceRows) {
			src = t.SourceRows[ri]
		}
		if ri == t.Header {
			rc.Push(b.row(row, widths, t.Align, nil, true, tcell.ColorDefault, ch.vertical, border), src)
			rc.Push(b.hline(widths, ch.midLeft, ch.cross, ch.midRight, ch.horizontal, border), -1)
			continue
		}
		bg := tcell.ColorDefault
		if stripe && dataIdx%2 == 1 {
			bg = b.Theme.Palette[0]
		}
		rc.Push(b.row(row, widths, t.Align, colTypes, false, bg, ch.vertical, border), src)
		dataIdx++
	}
	rc.Push(b.hline(widths, ch.bottomLeft, ch.bottomTee, ch.bottomRight, ch.horizontal, border), -1)
}

func (b Box) hline(widths []int, left, junction, right, fill rune, fg tcell.Color) types.StyledLine {
	var sb strings.Builder
	sb.WriteRune(left)
	for i, w := range widths {
		sb.WriteString(strings.Repeat(string(fill), w+2))
		if i < len(widths)-1 {
			sb.WriteRune(junction)
		}
	}
	sb.WriteRune(right)
	return types.Line(Seg(sb.String(), fg))
}

func (b Box) row(cells []string, widths []int, align []tabular.Align, colTypes []tabular.ColumnType,
	header bool, bg tcell.Color, vertical rune, border tcell.Color) types.StyledLine {
	bar := Seg(string(vertical), border)
	segs := make([]types.StyledSegment, 0, len(widths)*2+1)
	segs = append(segs, bar)
	for ci, w := range widths {
		value := ""
		if ci < len(cells) {
			value = cells[ci]
		}
		al := tabular.AlignLeft
		if ci < len(align) {
			al = align[ci]
		}
		if header {
			al = tabular.AlignLeft
		}
		seg := Seg(" "+Align(value, w, al)+" ", tcell.ColorDefault)
		switch {
		case header:
			seg.FG = b.Theme.AccentColor()
			seg.Bold = true
		case ci < len(colTypes):
			seg.FG = b.columnColor(colTypes[ci])
		}
		seg.BG = bg
		segs = append(segs, seg, bar)
	}
	return types.Line(segs...)
}

func (b Box) columnColor(ct tabular.ColumnType) tcell.Color {
	switch ct {
	case tabular.ColNumber:
		return b.Theme.NumberColor()
	case tabular.ColDateTime:
		return b.Theme.KeyColor()
	case tabular.ColPath:
		return b.Theme.LinkColor()
	default:
		return tcell.ColorDefault
	}
}
