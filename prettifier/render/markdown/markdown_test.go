// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"testing"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/types"
)

func renderLines(t *testing.T, lines ...string) types.RenderedContent {
	t.Helper()
	rc, err := New(Options{HighlightCode: true}).Render(types.NewBlock(lines, "", 0), types.DefaultRendererConfig())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rc.Lines) != len(lines) {
		t.Fatalf("expected %d rendered lines, got %d:\n%s", len(lines), len(rc.Lines), rc.Text())
	}
	for i, m := range rc.Mapping {
		if !m.HasSource || m.Source != i || m.Rendered != i {
			t.Fatalf("mapping %d = %+v, want identity", i, m)
		}
	}
	return rc
}

func findSeg(segs []types.StyledSegment, text string) (types.StyledSegment, bool) {
	for _, s := range segs {
		if s.Text == text {
			return s, true
		}
	}
	return types.StyledSegment{}, false
}

// ─── Block elements ──────────────────────────────────────────────────────────

func TestRender_BlockElements(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"# Title", "Title"},
		{"### Deeper ###", "Deeper"},
		{"- item", "• item"},
		{"  - nested", "  ◦ nested"},
		{"- [x] done", "• ☑ done"},
		{"1. first", "1. first"},
		{"> quoted", "│ quoted"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		rc := renderLines(t, tt.in)
		if got := rc.Lines[0].PlainText(); got != tt.want {
			t.Errorf("%q rendered as %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_HeaderIsBold(t *testing.T) {
	rc := renderLines(t, "## Section")
	for _, s := range rc.Lines[0].Segments {
		if !s.Bold {
			t.Errorf("header segment %q not bold", s.Text)
		}
	}
}

func TestRender_HorizontalRule(t *testing.T) {
	rc := renderLines(t, "text", "---", "more")
	if got := rc.Lines[1].PlainText(); got != strings.Repeat("─", 80) {
		t.Errorf("rule = %q", got)
	}
}

func TestRender_FencedCode(t *testing.T) {
	rc := renderLines(t, "intro", "```go", "package main", "```", "outro")
	if got := rc.Lines[1].PlainText(); got != "``` go" {
		t.Errorf("fence label = %q", got)
	}
	if got := rc.Lines[2].PlainText(); got != "│ package main" {
		t.Errorf("code line = %q", got)
	}
	if rc.Lines[4].PlainText() != "outro" {
		t.Errorf("text after fence = %q", rc.Lines[4].PlainText())
	}
}

func TestRender_UnclosedFenceRunsToEnd(t *testing.T) {
	rc := renderLines(t, "```", "# not a header", "- not a bullet")
	if got := rc.Lines[1].PlainText(); got != "│ # not a header" {
		t.Errorf("fenced line rendered as markdown: %q", got)
	}
}

func TestRender_TableInPlace(t *testing.T) {
	rc := renderLines(t, "| a | b |", "|---|---|", "| 1 | 2 |")
	want := []string{"│ a │ b │", "├───┼───┤", "│ 1 │ 2 │"}
	for i, w := range want {
		if got := rc.Lines[i].PlainText(); got != w {
			t.Errorf("line %d = %q, want %q", i, got, w)
		}
	}
}

// ─── Inline ──────────────────────────────────────────────────────────────────

func TestInline_Spans(t *testing.T) {
	theme := types.DefaultTheme()
	segs := Inline("a **b** *c* `d` [e](https://x.dev) ~~f~~ ***g***", theme.FG, theme)

	checks := []struct {
		text string
		ok   func(types.StyledSegment) bool
	}{
		{"b", func(s types.StyledSegment) bool { return s.Bold && !s.Italic }},
		{"c", func(s types.StyledSegment) bool { return s.Italic && !s.Bold }},
		{"d", func(s types.StyledSegment) bool { return s.BG == theme.Palette[0] }},
		{"e", func(s types.StyledSegment) bool { return s.LinkURL == "https://x.dev" && s.Underline }},
		{"f", func(s types.StyledSegment) bool { return s.Strikethrough }},
		{"g", func(s types.StyledSegment) bool { return s.Bold && s.Italic }},
	}
	for _, c := range checks {
		seg, ok := findSeg(segs, c.text)
		if !ok {
			t.Errorf("segment %q missing from %+v", c.text, segs)
			continue
		}
		if !c.ok(seg) {
			t.Errorf("segment %q has wrong style: %+v", c.text, seg)
		}
	}
}

func TestInline_LiteralText(t *testing.T) {
	theme := types.DefaultTheme()
	tests := []string{
		"use my_var_name here",
		"2 * 3 = 6",
		"unclosed **bold",
		"array[0] and (parens)",
	}
	for _, in := range tests {
		var b strings.Builder
		for _, s := range Inline(in, theme.FG, theme) {
			b.WriteString(s.Text)
		}
		if b.String() != in {
			t.Errorf("Inline(%q) changed text to %q", in, b.String())
		}
	}
}

func TestInline_Autolink(t *testing.T) {
	theme := types.DefaultTheme()
	seg, ok := findSeg(Inline("see <https://example.com>", theme.FG, theme), "https://example.com")
	if !ok || seg.LinkURL != "https://example.com" {
		t.Errorf("autolink not recognised: %+v", seg)
	}
}

// ─── Registration ────────────────────────────────────────────────────────────

func TestFactoryRegistered(t *testing.T) {
	f, ok := registry.Lookup(FormatID)
	if !ok {
		t.Fatal("markdown factory not registered")
	}
	rend, err := f(config.Section{"highlight_code": false})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if rend.(*Renderer).opts.HighlightCode {
		t.Error("highlight_code option ignored")
	}
}
