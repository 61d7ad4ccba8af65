// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/prettify/prettifier/types"
)

// sgrState is the pen while decoding.
type sgrState struct {
	fg, bg                          tcell.Color
	bold, italic, underline, strike bool
}

func defaultPen() sgrState {
	return sgrState{fg: tcell.ColorDefault, bg: tcell.ColorDefault}
}

func (p sgrState) segment(text string) types.StyledSegment {
	return types.StyledSegment{
		Text:          text,
		FG:            p.fg,
		BG:            p.bg,
		Bold:          p.bold,
		Italic:        p.italic,
		Underline:     p.underline,
		Strikethrough: p.strike,
	}
}

// DecodeANSI converts text containing SGR escape sequences into styled
// lines, one per "\n". Other control sequences are dropped. The pen carries
// across lines the way a terminal would.
func DecodeANSI(text string) []types.StyledLine {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	out := make([]types.StyledLine, 0, len(raw))
	pen := defaultPen()
	for _, ln := range raw {
		var line types.StyledLine
		line, pen = decodeLine(ln, pen)
		out = append(out, line)
	}
	return out
}

func decodeLine(s string, pen sgrState) (types.StyledLine, sgrState) {
	var line types.StyledLine
	flush := func(run string) {
		run = strings.ReplaceAll(ansi.Strip(run), "\r", "")
		if run == "" {
			return
		}
		line.Segments = append(line.Segments, pen.segment(run))
	}
	for {
		i := strings.Index(s, "\x1b[")
		if i < 0 {
			flush(s)
			break
		}
		flush(s[:i])
		j := i + 2
		for j < len(s) && (s[j] < 0x40 || s[j] > 0x7e) {
			j++
		}
		if j >= len(s) {
			break
		}
		if s[j] == 'm' {
			pen = applySGR(pen, s[i+2:j])
		}
		s = s[j+1:]
	}
	if len(line.Segments) == 0 {
		line.Segments = []types.StyledSegment{types.Plain("")}
	}
	return line, pen
}

func applySGR(p sgrState, params string) sgrState {
	if params == "" {
		return defaultPen()
	}
	fields := strings.FieldsFunc(params, func(r rune) bool { return r == ';' || r == ':' })
	codes := make([]int, len(fields))
	for i, f := range fields {
		codes[i], _ = strconv.Atoi(f)
	}
	for i := 0; i < len(codes); i++ {
		c := codes[i]
		switch {
		case c == 0:
			p = defaultPen()
		case c == 1:
			p.bold = true
		case c == 3:
			p.italic = true
		case c == 4:
			p.underline = true
		case c == 9:
			p.strike = true
		case c == 22:
			p.bold = false
		case c == 23:
			p.italic = false
		case c == 24:
			p.underline = false
		case c == 29:
			p.strike = false
		case c >= 30 && c <= 37:
			p.fg = tcell.PaletteColor(c - 30)
		case c >= 90 && c <= 97:
			p.fg = tcell.PaletteColor(c - 90 + 8)
		case c == 39:
			p.fg = tcell.ColorDefault
		case c >= 40 && c <= 47:
			p.bg = tcell.PaletteColor(c - 40)
		case c >= 100 && c <= 107:
			p.bg = tcell.PaletteColor(c - 100 + 8)
		case c == 49:
			p.bg = tcell.ColorDefault
		case c == 38 || c == 48:
			col, used := extendedColor(codes[i+1:])
			i += used
			if c == 38 {
				p.fg = col
			} else {
				p.bg = col
			}
		}
	}
	return p
}

// extendedColor parses the tail of a 38/48 sequence: "5;n" or "2;r;g;b".
func extendedColor(rest []int) (tcell.Color, int) {
	if len(rest) >= 2 && rest[0] == 5 {
		return tcell.PaletteColor(rest[1] & 0xff), 2
	}
	if len(rest) >= 4 && rest[0] == 2 {
		return tcell.NewRGBColor(int32(rest[1]), int32(rest[2]), int32(rest[3])), 4
	}
	return tcell.ColorDefault, len(rest)
}

// EncodeANSI renders a styled line as an escape-sequence string for plain
// terminals. With color false only the text is written.
func EncodeANSI(line types.StyledLine, color bool) string {
	var b strings.Builder
	for _, seg := range line.Segments {
		if !color || seg.IsPlain() {
			b.WriteString(seg.Text)
			continue
		}
		st := lipgloss.NewStyle().
			Bold(seg.Bold).
			Italic(seg.Italic).
			Underline(seg.Underline).
			Strikethrough(seg.Strikethrough)
		if c, ok := lipglossColor(seg.FG); ok {
			st = st.Foreground(c)
		}
		if c, ok := lipglossColor(seg.BG); ok {
			st = st.Background(c)
		}
		text := st.Render(seg.Text)
		if seg.LinkURL != "" {
			text = ansi.SetHyperlink(seg.LinkURL) + text + ansi.ResetHyperlink()
		}
		b.WriteString(text)
	}
	return b.String()
}

func lipglossColor(c tcell.Color) (lipgloss.Color, bool) {
	if c == tcell.ColorDefault {
		return "", false
	}
	hex := c.Hex()
	if hex < 0 {
		return "", false
	}
	return lipgloss.Color(fmt.Sprintf("#%06x", hex)), true
}
