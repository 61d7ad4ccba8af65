// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stacktrace renders stack traces from the JVM, Python, Rust,
// Node.js and Go with highlighted headers, clickable file locations and
// collapsed frame runs.
package stacktrace

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "stack_trace"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		d := DefaultOptions()
		return New(Options{
			AppPackages:      opts.GetStrings("app_packages"),
			MaxVisibleFrames: opts.GetInt("max_visible_frames", d.MaxVisibleFrames),
			KeepTailFrames:   opts.GetInt("keep_tail_frames", d.KeepTailFrames),
		}), nil
	})
}

type Options struct {
	// AppPackages marks frames containing any of these substrings as
	// application frames. Empty means every frame is application code.
	AppPackages      []string
	MaxVisibleFrames int
	KeepTailFrames   int
}

func DefaultOptions() Options {
	return Options{MaxVisibleFrames: 5, KeepTailFrames: 1}
}

// LineKind classifies a trace line.
type LineKind int

const (
	KindOther LineKind = iota
	KindHeader
	KindCausedBy
	KindFrame
)

// Location is a source position referenced by a frame.
type Location struct {
	Path   string
	Line   int
	Column int
}

// Target is the link target: path:line[:column].
func (l Location) Target() string {
	switch {
	case l.Line > 0 && l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
	case l.Line > 0:
		return fmt.Sprintf("%s:%d", l.Path, l.Line)
	}
	return l.Path
}

// Line is one classified trace line.
type Line struct {
	Kind LineKind
	Text string
	// App is false for framework frames.
	App bool
	Loc *Location
}

var (
	reJavaFrame   = regexp.MustCompile(`^\s+at\s+[\w.$<>]+\(([\w.$-]+):(\d+)\)`)
	rePythonFrame = regexp.MustCompile(`^\s+File "([^"]+)", line (\d+)`)
	reJSFrame     = regexp.MustCompile(`^\s+at\s+(?:\S+\s+\()?(.+?):(\d+):(\d+)\)?$`)
	reRustLoc     = regexp.MustCompile(`([\w/\\.-]+\.rs):(\d+)(?::(\d+))?`)
	reGoLoc       = regexp.MustCompile(`([\w/\\.@-]+\.go):(\d+)`)
	reErrorHeader = regexp.MustCompile(`^([\w.]+(?:Error|Exception|Panic)):?(\s|$)`)
	reCausedBy    = regexp.MustCompile(`^\s*Caused by:`)
	reTraceback   = regexp.MustCompile(`^Traceback \(most recent call last\):`)
	reRustPanic   = regexp.MustCompile(`^thread '.*' panicked at`)
	reGoPanic     = regexp.MustCompile(`^(goroutine \d+ \[|panic: )`)
	rePosSuffix   = regexp.MustCompile(`^:\d+(:\d+)?`)
)

// ParseLine classifies one line.
func ParseLine(line string, appPackages []string) Line {
	switch {
	case reCausedBy.MatchString(line):
		return Line{Kind: KindCausedBy, Text: line}
	case reErrorHeader.MatchString(line), reTraceback.MatchString(line),
		reRustPanic.MatchString(line), reGoPanic.MatchString(line):
		return Line{Kind: KindHeader, Text: line}
	}
	loc := locate(line)
	if loc != nil || strings.HasPrefix(strings.TrimLeft(line, " \t"), "at ") ||
		strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
		return Line{Kind: KindFrame, Text: line, Loc: loc, App: isApp(line, appPackages)}
	}
	return Line{Kind: KindOther, Text: line}
}

func locate(line string) *Location {
	pick := func(m []string, col bool) *Location {
		n, _ := strconv.Atoi(m[2])
		loc := &Location{Path: m[1], Line: n}
		if col && len(m) > 3 {
			loc.Column, _ = strconv.Atoi(m[3])
		}
		return loc
	}
	if m := reJavaFrame.FindStringSubmatch(line); m != nil {
		return pick(m, false)
	}
	if m := rePythonFrame.FindStringSubmatch(line); m != nil {
		return pick(m, false)
	}
	if m := reJSFrame.FindStringSubmatch(line); m != nil {
		return pick(m, true)
	}
	if m := reRustLoc.FindStringSubmatch(line); m != nil {
		return pick(m, true)
	}
	if m := reGoLoc.FindStringSubmatch(line); m != nil {
		return pick(m, false)
	}
	return nil
}

func isApp(line string, appPackages []string) bool {
	if len(appPackages) == 0 {
		return true
	}
	for _, p := range appPackages {
		if p != "" && strings.Contains(line, p) {
			return true
		}
	}
	return false
}

type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer { return &Renderer{opts: opts} }

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "Stack Trace" }
func (r *Renderer) Badge() string                    { return "TRACE" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	theme := cfg.Theme
	parsed := make([]Line, len(block.Lines))
	for i, ln := range block.Lines {
		parsed[i] = ParseLine(ln, r.opts.AppPackages)
	}
	rc := types.RenderedContent{Badge: r.Badge()}
	for i := 0; i < len(parsed); {
		l := parsed[i]
		switch l.Kind {
		case KindHeader:
			rc.Push(types.Line(render.BoldSeg(l.Text, theme.Palette[9])), i)
		case KindCausedBy:
			rc.Push(types.Line(render.BoldSeg(l.Text, theme.ErrorColor())), i)
		case KindFrame:
			start := i
			for i < len(parsed) && parsed[i].Kind == KindFrame {
				i++
			}
			r.frames(&rc, parsed, start, i, theme)
			continue
		default:
			rc.Push(types.PlainLine(l.Text), i)
		}
		i++
	}
	return rc, nil
}

// frames draws parsed[start:end]. Runs longer than MaxVisibleFrames keep
// their head and KeepTailFrames tail lines around an unmapped summary.
func (r *Renderer) frames(rc *types.RenderedContent, parsed []Line, start, end int, theme types.ThemeColors) {
	count := end - start
	limit := max(r.opts.MaxVisibleFrames, 0)
	if count <= limit {
		for i := start; i < end; i++ {
			rc.Push(frameLine(parsed[i], theme), i)
		}
		return
	}
	tail := min(max(r.opts.KeepTailFrames, 0), limit)
	head := limit - tail
	for i := start; i < start+head; i++ {
		rc.Push(frameLine(parsed[i], theme), i)
	}
	if hidden := count - head - tail; hidden > 0 {
		rc.Push(types.Line(render.ItalicSeg(fmt.Sprintf("    ... %d more frames", hidden), theme.DimColor())), -1)
	}
	for i := end - tail; i < end; i++ {
		rc.Push(frameLine(parsed[i], theme), i)
	}
}

func frameLine(l Line, theme types.ThemeColors) types.StyledLine {
	fg := tcell.ColorDefault
	if !l.App {
		fg = theme.DimColor()
	}
	if l.Loc == nil {
		return types.Line(render.Seg(l.Text, fg))
	}
	idx := strings.Index(l.Text, l.Loc.Path)
	if idx < 0 {
		return types.Line(render.Seg(l.Text, fg))
	}
	end := idx + len(l.Loc.Path)
	end += len(rePosSuffix.FindString(l.Text[end:]))
	var segs []types.StyledSegment
	if idx > 0 {
		segs = append(segs, render.Seg(l.Text[:idx], fg))
	}
	segs = append(segs, render.LinkSeg(l.Text[idx:end], l.Loc.Target(), theme.KeyColor()))
	if end < len(l.Text) {
		segs = append(segs, render.Seg(l.Text[end:], fg))
	}
	return types.Line(segs...)
}
