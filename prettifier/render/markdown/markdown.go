// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/render/markdown/markdown.go
// Summary: Line-preserving Markdown renderer.
//
// Every source line yields exactly one rendered line, so the mapping is the
// identity and copy/search line up with the scrollback. Fenced code is
// highlighted with chroma; pipe tables are redrawn in place with box
// characters.

package markdown

import (
	"regexp"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/tabular"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "markdown"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		return New(Options{
			HighlightCode: opts.GetBool("highlight_code", true),
			ChromaStyle:   opts.GetString("chroma_style", render.DefaultChromaStyle),
		}), nil
	})
}

var (
	reHeader    = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	reRule      = regexp.MustCompile(`^\s{0,3}([-*_])(\s*([-*_]))(\s*([-*_]))[\s\-*_]*$`)
	reQuote     = regexp.MustCompile(`^\s*>\s?(.*)$`)
	reBullet    = regexp.MustCompile(`^(\s*)([-*+])\s+(\[[ xX]\]\s+)?(.*)$`)
	reOrdered   = regexp.MustCompile(`^(\s*)(\d+[.)])\s+(.*)$`)
	reFence     = regexp.MustCompile("^\\s*(```+|~~~+)\\s*([\\w+#.-]*)")
	reTableLine = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

// Options configures the renderer.
type Options struct {
	HighlightCode bool
	ChromaStyle   string
}

// Renderer renders Markdown.
type Renderer struct {
	opts Options
	hl   *render.Highlighter
}

// New returns a Markdown renderer.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts, hl: render.NewHighlighter(opts.ChromaStyle)}
}

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "Markdown" }
func (r *Renderer) Badge() string                    { return "MD" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

// Render walks the block once, dispatching fenced code and table runs to
// their own helpers and everything else line by line.
func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	rc := types.RenderedContent{Badge: r.Badge()}
	lines := block.Lines
	theme := cfg.Theme
	width := cfg.Width()

	for i := 0; i < len(lines); {
		ln := lines[i]
		if m := reFence.FindStringSubmatch(ln); m != nil {
			i = r.fenced(&rc, lines, i, m[1], m[2], theme)
			continue
		}
		if reTableLine.MatchString(ln) {
			end := i
			for end < len(lines) && reTableLine.MatchString(lines[end]) {
				end++
			}
			if end-i >= 2 && tabular.IsSeparator(lines[i+1]) {
				tableLines(&rc, lines, i, end, theme, width)
				i = end
				continue
			}
		}
		rc.Push(renderLine(ln, theme, width), i)
		i++
	}
	return rc, nil
}

// fenced renders a code fence starting at start and returns the index after
// its closing line. An unclosed fence runs to the end of the block.
func (r *Renderer) fenced(rc *types.RenderedContent, lines []string, start int, marker, lang string, theme types.ThemeColors) int {
	dim := theme.DimColor()
	label := "```"
	if lang != "" {
		label += " " + lang
	}
	rc.Push(types.Line(render.ItalicSeg(label, dim)), start)

	end := start + 1
	for end < len(lines) && !isClosingFence(lines[end], marker) {
		end++
	}
	code := lines[start+1 : end]
	var styled []types.StyledLine
	if r.opts.HighlightCode {
		styled = r.hl.Lines(code, lang)
	}
	for k, ln := range code {
		line := types.PlainLine(ln)
		if k < len(styled) {
			line = styled[k]
		}
		line.Segments = append([]types.StyledSegment{render.Seg("│ ", dim)}, line.Segments...)
		rc.Push(line, start+1+k)
	}
	if end < len(lines) {
		rc.Push(types.Line(render.Seg("```", dim)), end)
		end++
	}
	return end
}

func isClosingFence(line, marker string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, marker) && strings.Trim(trimmed, marker[:1]) == ""
}

// tableLines redraws a pipe table one rendered line per source line.
func tableLines(rc *types.RenderedContent, lines []string, start, end int, theme types.ThemeColors, width int) {
	tbl := (tabular.Markdown{}).Parse(lines[start:end])
	if tbl == nil {
		for i := start; i < end; i++ {
			rc.Push(types.PlainLine(lines[i]), i)
		}
		return
	}
	widths := render.ColumnWidths(tbl, width)
	border := theme.DimColor()
	rowAt := make(map[int]int, len(tbl.SourceRows))
	for ri, src := range tbl.SourceRows {
		rowAt[src] = ri
	}
	for i := start; i < end; i++ {
		rel := i - start
		ri, ok := rowAt[rel]
		if !ok {
			// separator row
			var sb strings.Builder
			sb.WriteString("├")
			for ci, w := range widths {
				sb.WriteString(strings.Repeat("─", w+2))
				if ci < len(widths)-1 {
					sb.WriteString("┼")
				}
			}
			sb.WriteString("┤")
			rc.Push(types.Line(render.Seg(sb.String(), border)), i)
			continue
		}
		bar := render.Seg("│", border)
		segs := []types.StyledSegment{bar}
		for ci, w := range widths {
			cell := " " + render.Align(tbl.Rows[ri][ci], w, tbl.Align[ci]) + " "
			seg := types.Plain(cell)
			if ri == tbl.Header {
				seg = render.BoldSeg(cell, theme.Palette[11])
			}
			segs = append(segs, seg, bar)
		}
		rc.Push(types.Line(segs...), i)
	}
}

func headerColor(level int, theme types.ThemeColors) tcell.Color {
	switch level {
	case 1:
		return theme.Palette[14]
	case 2:
		return theme.Palette[10]
	case 3:
		return theme.Palette[11]
	case 4:
		return theme.Palette[12]
	case 5:
		return theme.Palette[13]
	default:
		return theme.Palette[8]
	}
}

func renderLine(ln string, theme types.ThemeColors, width int) types.StyledLine {
	if m := reHeader.FindStringSubmatch(ln); m != nil {
		level := len(m[1])
		segs := Inline(m[2], headerColor(level, theme), theme)
		for i := range segs {
			segs[i].Bold = true
			if level == 1 {
				segs[i].Underline = true
			}
		}
		return types.Line(segs...)
	}
	if reRule.MatchString(ln) {
		return types.Line(render.Seg(strings.Repeat("─", max(1, min(width, 80))), theme.DimColor()))
	}
	if m := reQuote.FindStringSubmatch(ln); m != nil {
		segs := []types.StyledSegment{render.Seg("│ ", theme.AccentColor())}
		for _, s := range Inline(m[1], theme.Palette[7], theme) {
			s.Italic = true
			segs = append(segs, s)
		}
		return types.Line(segs...)
	}
	if m := reBullet.FindStringSubmatch(ln); m != nil {
		indent := m[1]
		bullet := "•"
		switch runewidth.StringWidth(indent) / 2 {
		case 0:
		case 1:
			bullet = "◦"
		default:
			bullet = "▪"
		}
		segs := []types.StyledSegment{render.Seg(indent+bullet+" ", theme.KeyColor())}
		switch strings.TrimSpace(m[3]) {
		case "[ ]":
			segs = append(segs, render.Seg("☐ ", theme.DimColor()))
		case "[x]", "[X]":
			segs = append(segs, render.Seg("☑ ", theme.StringColor()))
		}
		segs = append(segs, Inline(m[4], tcell.ColorDefault, theme)...)
		return types.Line(segs...)
	}
	if m := reOrdered.FindStringSubmatch(ln); m != nil {
		segs := []types.StyledSegment{render.BoldSeg(m[1]+m[2]+" ", theme.NumberColor())}
		segs = append(segs, Inline(m[3], tcell.ColorDefault, theme)...)
		return types.Line(segs...)
	}
	if strings.TrimSpace(ln) == "" {
		return types.PlainLine(ln)
	}
	return types.Line(Inline(ln, tcell.ColorDefault, theme)...)
}
