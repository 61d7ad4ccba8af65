// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// File: prettifier/render/diff/diff.go
// Summary: Unified/git diff renderer with word-level highlighting and an
// optional side-by-side layout.

// Package diff renders unified and git diffs.
package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "diff"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		d := DefaultOptions()
		return New(Options{
			Style:              ParseStyle(opts.GetString("style", "auto")),
			SideBySideMinWidth: opts.GetInt("side_by_side_min_width", d.SideBySideMinWidth),
			WordDiff:           opts.GetBool("word_diff", d.WordDiff),
			LineNumbers:        opts.GetBool("show_line_numbers", d.LineNumbers),
		}), nil
	})
}

// Style selects the layout.
type Style int

const (
	StyleAuto Style = iota
	StyleInline
	StyleSideBySide
)

// ParseStyle maps a config value to a Style; unknown values are auto.
func ParseStyle(s string) Style {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline":
		return StyleInline
	case "side_by_side", "side-by-side", "split":
		return StyleSideBySide
	default:
		return StyleAuto
	}
}

type Options struct {
	Style              Style
	SideBySideMinWidth int
	WordDiff           bool
	LineNumbers        bool
}

func DefaultOptions() Options {
	return Options{Style: StyleAuto, SideBySideMinWidth: 160, WordDiff: true, LineNumbers: true}
}

type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer { return &Renderer{opts: opts} }

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "Diff" }
func (r *Renderer) Badge() string                    { return "DIFF" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

// SideBySide reports whether a render at width uses the split layout. It
// depends on nothing but the options and width.
func (r *Renderer) SideBySide(width int) bool {
	switch r.opts.Style {
	case StyleSideBySide:
		return true
	case StyleInline:
		return false
	default:
		return width >= r.opts.SideBySideMinWidth
	}
}

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	parsed := Parse(block.Lines)
	if !HasHunks(parsed) {
		return types.RenderedContent{}, types.Failed("no diff hunks found")
	}
	w := writer{
		opts:    r.opts,
		theme:   cfg.Theme,
		parsed:  parsed,
		partner: pairRuns(parsed),
		rc:      types.RenderedContent{Badge: r.Badge()},
	}
	if r.opts.LineNumbers {
		w.numW = numberWidth(parsed)
	}
	if r.SideBySide(cfg.Width()) {
		w.sideBySide(cfg.Width())
	} else {
		w.inline()
	}
	return w.rc, nil
}

type writer struct {
	opts    Options
	theme   types.ThemeColors
	parsed  []Line
	partner []int
	numW    int
	rc      types.RenderedContent
}

func (w *writer) inline() {
	for i, l := range w.parsed {
		switch l.Kind {
		case KindContext:
			w.rc.Push(types.Line(append(w.gutter(l.OldNo, l.NewNo), types.Plain(" "+l.Text))...), l.Src)
		case KindRemoved, KindAdded:
			segs := append(w.gutter(l.OldNo, l.NewNo), w.marker(l.Kind))
			w.rc.Push(types.Line(append(segs, w.body(i)...)...), l.Src)
		default:
			w.rc.Push(w.plain(l), l.Src)
		}
	}
}

func (w *writer) sideBySide(width int) {
	half := max((width-3)/2, 4)
	content := max(half-w.numCol()-1, 1)
	sep := render.Seg(" │ ", w.theme.DimColor())

	for i := 0; i < len(w.parsed); i++ {
		l := w.parsed[i]
		switch l.Kind {
		case KindContext:
			left := w.cell(l.OldNo, types.Plain(" "), []types.StyledSegment{types.Plain(l.Text)}, content)
			right := w.cell(l.NewNo, types.Plain(" "), []types.StyledSegment{types.Plain(l.Text)}, content)
			w.rc.Push(joinRow(left, sep, right), l.Src)
		case KindRemoved, KindAdded:
			var removed, added []int
			for ; i < len(w.parsed) && w.parsed[i].Kind == KindRemoved; i++ {
				removed = append(removed, i)
			}
			for ; i < len(w.parsed) && w.parsed[i].Kind == KindAdded; i++ {
				added = append(added, i)
			}
			i--
			for k := 0; k < max(len(removed), len(added)); k++ {
				left, right := w.blank(content), w.blank(content)
				src := -1
				if k < len(removed) {
					rl := w.parsed[removed[k]]
					left = w.cell(rl.OldNo, w.marker(KindRemoved), w.body(removed[k]), content)
					src = rl.Src
				}
				if k < len(added) {
					al := w.parsed[added[k]]
					right = w.cell(al.NewNo, w.marker(KindAdded), w.body(added[k]), content)
					if src < 0 {
						src = al.Src
					}
				}
				w.rc.Push(joinRow(left, sep, right), src)
			}
		case KindOldPath:
			if i+1 < len(w.parsed) && w.parsed[i+1].Kind == KindNewPath {
				left := render.Fit(w.plain(l).Segments, half)
				right := render.Fit(w.plain(w.parsed[i+1]).Segments, half)
				w.rc.Push(joinRow(left, sep, right), l.Src)
				i++
				continue
			}
			w.rc.Push(w.plain(l), l.Src)
		default:
			w.rc.Push(w.plain(l), l.Src)
		}
	}
}

// plain renders the lines that look the same in both layouts.
func (w *writer) plain(l Line) types.StyledLine {
	switch l.Kind {
	case KindFileHeader:
		if strings.HasPrefix(l.Text, "diff ") {
			return types.Line(render.BoldSeg(l.Text, w.theme.Palette[15]))
		}
		return types.Line(render.Seg(l.Text, w.theme.DimColor()))
	case KindOldPath:
		return types.Line(render.BoldSeg("--- "+l.Text, w.theme.ErrorColor()))
	case KindNewPath:
		return types.Line(render.BoldSeg("+++ "+l.Text, w.theme.StringColor()))
	case KindHunk:
		segs := []types.StyledSegment{render.Seg(l.Text, w.theme.KeyColor())}
		if l.Section != "" {
			segs = append(segs, render.Seg(" "+l.Section, w.theme.DimColor()))
		}
		return types.Line(segs...)
	case KindNoNewline:
		return types.Line(render.ItalicSeg(l.Text, w.theme.DimColor()))
	case KindText:
		if strings.HasPrefix(l.Text, "commit ") {
			return types.Line(render.BoldSeg(l.Text, w.theme.WarningColor()))
		}
	}
	return types.PlainLine(l.Text)
}

func (w *writer) marker(k Kind) types.StyledSegment {
	if k == KindRemoved {
		return render.Seg("-", w.theme.ErrorColor())
	}
	return render.Seg("+", w.theme.StringColor())
}

// body returns the text of a changed line, with the words that differ from
// its paired line highlighted.
func (w *writer) body(i int) []types.StyledSegment {
	l := w.parsed[i]
	fg, bg := w.theme.StringColor(), w.theme.AddedBGColor()
	if l.Kind == KindRemoved {
		fg, bg = w.theme.ErrorColor(), w.theme.RemovedBGColor()
	}
	p := w.partner[i]
	if !w.opts.WordDiff || p < 0 {
		return []types.StyledSegment{render.Seg(l.Text, fg)}
	}
	mine := Tokens(l.Text)
	changed, _, ok := Changed(mine, Tokens(w.parsed[p].Text))
	if !ok {
		s := render.Seg(l.Text, fg)
		s.BG = bg
		return []types.StyledSegment{s}
	}
	var segs []types.StyledSegment
	for t := 0; t < len(mine); {
		end := t
		var sb strings.Builder
		for end < len(mine) && changed[end] == changed[t] {
			sb.WriteString(mine[end])
			end++
		}
		s := render.Seg(sb.String(), fg)
		if changed[t] {
			s.BG = bg
			s.Bold = true
		}
		segs = append(segs, s)
		t = end
	}
	return segs
}

func (w *writer) gutter(oldNo, newNo int) []types.StyledSegment {
	if w.numW == 0 {
		return nil
	}
	text := fmt.Sprintf("%*s %*s │ ", w.numW, lineNo(oldNo), w.numW, lineNo(newNo))
	return []types.StyledSegment{render.Seg(text, w.theme.DimColor())}
}

func (w *writer) numCol() int {
	if w.numW == 0 {
		return 0
	}
	return w.numW + 1
}

func (w *writer) cell(no int, marker types.StyledSegment, body []types.StyledSegment, content int) []types.StyledSegment {
	var segs []types.StyledSegment
	if w.numW > 0 {
		segs = append(segs, render.Seg(fmt.Sprintf("%*s ", w.numW, lineNo(no)), w.theme.DimColor()))
	}
	segs = append(segs, marker)
	return append(segs, render.Fit(body, content)...)
}

func (w *writer) blank(content int) []types.StyledSegment {
	return []types.StyledSegment{types.Plain(strings.Repeat(" ", w.numCol()+1+content))}
}

func joinRow(left []types.StyledSegment, sep types.StyledSegment, right []types.StyledSegment) types.StyledLine {
	segs := make([]types.StyledSegment, 0, len(left)+len(right)+1)
	segs = append(segs, left...)
	segs = append(segs, sep)
	return types.Line(append(segs, right...)...)
}

// pairRuns pairs the k-th line of a removed run with the k-th line of the
// added run right after it. Unpaired lines get -1.
func pairRuns(parsed []Line) []int {
	partner := make([]int, len(parsed))
	for i := range partner {
		partner[i] = -1
	}
	for i := 0; i < len(parsed); {
		if parsed[i].Kind != KindRemoved {
			i++
			continue
		}
		rs := i
		for i < len(parsed) && parsed[i].Kind == KindRemoved {
			i++
		}
		as := i
		for i < len(parsed) && parsed[i].Kind == KindAdded {
			i++
		}
		for k := 0; k < min(as-rs, i-as); k++ {
			partner[rs+k], partner[as+k] = as+k, rs+k
		}
	}
	return partner
}

// numberWidth is the digit count of the largest line number, at least 3.
func numberWidth(parsed []Line) int {
	hi := 0
	for _, l := range parsed {
		hi = max(hi, l.OldNo, l.NewNo)
	}
	return max(len(strconv.Itoa(hi)), 3)
}

func lineNo(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
