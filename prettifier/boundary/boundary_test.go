// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package boundary

import (
	"fmt"
	"testing"
	"time"

	"github.com/framegrace/prettify/prettifier/types"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newDetector(scope Scope) (*Detector, *fakeClock) {
	cfg := DefaultConfig()
	cfg.Scope = scope
	d := New(cfg)
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	d.SetClock(clk.now)
	return d, clk
}

// ─── Hard cap ───────────────────────────────────────────────────────────────

func TestPushLine_MaxScanLinesForcesEmit(t *testing.T) {
	d, _ := newDetector(ScopeAll)

	var emitted []*types.ContentBlock
	for i := 0; i < 501; i++ {
		if b := d.PushLine(fmt.Sprintf("line %d", i), i); b != nil {
			emitted = append(emitted, b)
		}
	}

	if len(emitted) != 1 {
		t.Fatalf("expected exactly one forced block, got %d", len(emitted))
	}
	b := emitted[0]
	if len(b.Lines) != 500 {
		t.Errorf("expected 500 lines, got %d", len(b.Lines))
	}
	if b.Rows != (types.RowRange{Start: 0, End: 500}) {
		t.Errorf("unexpected row range %v", b.Rows)
	}
	if d.Pending() != 1 {
		t.Errorf("501st line should start a new accumulation, pending=%d", d.Pending())
	}

	rest := d.Flush()
	if rest == nil || rest.Rows.Start != 500 || rest.Lines[0] != "line 500" {
		t.Fatalf("unexpected remainder block: %+v", rest)
	}
}

func TestPushLine_MaxScanLinesAppliesInManualOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scope = ScopeManualOnly
	cfg.MaxScanLines = 3
	d := New(cfg)

	for i := 0; i < 2; i++ {
		if b := d.PushLine("x", i); b != nil {
			t.Fatalf("unexpected emit at %d", i)
		}
	}
	if b := d.PushLine("x", 2); b == nil || len(b.Lines) != 3 {
		t.Fatalf("expected cap emit, got %+v", b)
	}
}

// ─── Blank-line splitting ───────────────────────────────────────────────────

func TestPushLine_BlankRunSplitsInAllScope(t *testing.T) {
	d, _ := newDetector(ScopeAll)

	d.PushLine("first", 0)
	d.PushLine("second", 1)
	if b := d.PushLine("", 2); b != nil {
		t.Fatal("single blank line must not split")
	}
	b := d.PushLine("   ", 3)
	if b == nil {
		t.Fatal("second blank line should emit")
	}
	if len(b.Lines) != 2 || b.Lines[1] != "second" {
		t.Errorf("trailing blanks should be trimmed, got %q", b.Lines)
	}
	if b.Rows != (types.RowRange{Start: 0, End: 2}) {
		t.Errorf("unexpected rows %v", b.Rows)
	}

	d.PushLine("", 4)
	d.PushLine("next", 5)
	nb := d.Flush()
	if nb == nil || nb.Rows.Start != 5 || len(nb.Lines) != 1 {
		t.Fatalf("separator rows must not open a block: %+v", nb)
	}
}

func TestPushLine_SingleBlankKeptInsideBlock(t *testing.T) {
	d, _ := newDetector(ScopeAll)
	for i, l := range []string{"# Title", "", "Some **bold** text."} {
		if b := d.PushLine(l, i); b != nil {
			t.Fatalf("unexpected emit at %d", i)
		}
	}
	b := d.Flush()
	if b == nil || len(b.Lines) != 3 {
		t.Fatalf("expected 3-line block, got %+v", b)
	}
}

func TestPushLine_FenceSuppressesBlankSplit(t *testing.T) {
	d, _ := newDetector(ScopeAll)
	lines := []string{"```go", "func a() {}", "", "", "func b() {}", "```", "after"}
	for i, l := range lines {
		if b := d.PushLine(l, i); b != nil {
			t.Fatalf("blank lines inside a fence must not split (row %d)", i)
		}
	}
	b := d.Flush()
	if b == nil || len(b.Lines) != len(lines) {
		t.Fatalf("expected whole fenced block, got %+v", b)
	}

	// After the fence closes, blank runs split again.
	d.PushLine("x", 10)
	d.PushLine("", 11)
	if d.PushLine("", 12) == nil {
		t.Fatal("expected split after closed fence")
	}
}

func TestUpdateFence(t *testing.T) {
	tests := []struct {
		lines []string
		want  bool
	}{
		{[]string{"```"}, true},
		{[]string{"~~~python"}, true},
		{[]string{"```c++"}, true},
		{[]string{"```not a fence"}, false},
		{[]string{"```", "```"}, false},
		{[]string{"~~~", "```"}, true},
		{[]string{"````", "````"}, false},
		{[]string{"```", "``` trailing"}, true},
	}
	for _, tt := range tests {
		d := New(DefaultConfig())
		for _, l := range tt.lines {
			d.updateFence(l)
		}
		if d.inFence != tt.want {
			t.Errorf("%q: inFence=%v, want %v", tt.lines, d.inFence, tt.want)
		}
	}
}

// ─── Scopes ─────────────────────────────────────────────────────────────────

func TestCommandOutputScope_IgnoresLinesOutsideWindow(t *testing.T) {
	d, _ := newDetector(ScopeCommandOutput)

	if b := d.PushLine("prompt noise", 0); b != nil {
		t.Fatal("unexpected emit")
	}
	if d.Pending() != 0 {
		t.Fatalf("lines outside a command window must be ignored")
	}

	d.OnCommandStart("cat README.md")
	d.PushLine("# Title", 1)
	d.PushLine("body", 2)
	b := d.OnCommandEnd()
	if b == nil {
		t.Fatal("expected block on command end")
	}
	if b.PrecedingCommand != "cat README.md" {
		t.Errorf("command = %q", b.PrecedingCommand)
	}
	if b.Rows != (types.RowRange{Start: 1, End: 3}) {
		t.Errorf("rows = %v", b.Rows)
	}

	d.PushLine("after", 3)
	if d.Pending() != 0 {
		t.Errorf("window should be closed after command end")
	}
}

func TestOnCommandEnd_EmptyWindowYieldsZeroLineBlock(t *testing.T) {
	d, _ := newDetector(ScopeCommandOutput)
	d.OnCommandStart("true")
	b := d.OnCommandEnd()
	if b == nil {
		t.Fatal("expected zero-line block")
	}
	if !b.IsEmpty() || b.Rows.Len() != 0 {
		t.Errorf("expected empty block, got %+v", b)
	}

	// Unmatched end with nothing accumulated.
	if b := d.OnCommandEnd(); b != nil {
		t.Errorf("unmatched end should emit nothing, got %+v", b)
	}
}

func TestOnCommandStart_ResetsAccumulation(t *testing.T) {
	d, _ := newDetector(ScopeAll)
	d.PushLine("stale", 0)
	d.OnCommandStart("ls")
	if d.Pending() != 0 {
		t.Fatalf("command start should drop accumulated lines")
	}
	if d.CurrentCommand() != "ls" {
		t.Errorf("command = %q", d.CurrentCommand())
	}
}

func TestManualOnly_OnlyFlushEmits(t *testing.T) {
	d, clk := newDetector(ScopeManualOnly)
	d.PushLine("a", 0)
	d.PushLine("", 1)
	d.PushLine("", 2)
	d.PushLine("b", 3)
	clk.advance(time.Second)

	if b := d.CheckDebounce(clk.now()); b != nil {
		t.Error("debounce must not emit in manual scope")
	}
	if b := d.OnCommandEnd(); b != nil {
		t.Error("command end must not emit in manual scope")
	}
	if b := d.OnProcessChange(); b != nil {
		t.Error("process change must not emit in manual scope")
	}
	b := d.Flush()
	if b == nil || len(b.Lines) != 4 {
		t.Fatalf("flush should emit everything, got %+v", b)
	}
}

func TestOnAltScreenChange_EmitsInAnyScope(t *testing.T) {
	for _, scope := range []Scope{ScopeAll, ScopeManualOnly} {
		d, _ := newDetector(scope)
		d.PushLine("before pager", 0)
		if b := d.OnAltScreenChange(true); b == nil {
			t.Errorf("%v: expected emit on alt screen", scope)
		}
		if b := d.OnAltScreenChange(false); b != nil {
			t.Errorf("%v: nothing accumulated, expected nil", scope)
		}
	}
}

// ─── Debounce ───────────────────────────────────────────────────────────────

func TestCheckDebounce(t *testing.T) {
	d, clk := newDetector(ScopeAll)

	if b := d.CheckDebounce(clk.now()); b != nil {
		t.Fatal("nothing accumulated")
	}

	d.PushLine("output", 0)
	if b := d.CheckDebounce(clk.now().Add(50 * time.Millisecond)); b != nil {
		t.Fatal("debounce fired early")
	}
	b := d.CheckDebounce(clk.now().Add(100 * time.Millisecond))
	if b == nil || b.Lines[0] != "output" {
		t.Fatalf("expected debounce emit, got %+v", b)
	}
}

func TestReset_DiscardsWithoutEmitting(t *testing.T) {
	d, _ := newDetector(ScopeAll)
	d.PushLine("```", 0)
	d.PushLine("code", 1)
	d.Reset()
	if b := d.Flush(); b != nil {
		t.Fatalf("reset should discard, got %+v", b)
	}
	d.PushLine("a", 2)
	d.PushLine("", 3)
	if d.PushLine("", 4) == nil {
		t.Error("fence state should be cleared by reset")
	}
}

// ─── Invariants ─────────────────────────────────────────────────────────────

func TestBlocksNeverOverlapOrDuplicate(t *testing.T) {
	d, clk := newDetector(ScopeAll)
	cfg := d.Config()
	cfg.MaxScanLines = 7
	d = New(cfg)
	d.SetClock(clk.now)

	var blocks []*types.ContentBlock
	collect := func(b *types.ContentBlock) {
		if b != nil && !b.IsEmpty() {
			blocks = append(blocks, b)
		}
	}

	row := 0
	for i := 0; i < 60; i++ {
		line := fmt.Sprintf("content %d", i)
		if i%9 == 4 {
			collect(d.PushLine("", row))
			row++
			line = ""
		}
		collect(d.PushLine(line, row))
		row++
		if i%13 == 0 {
			collect(d.OnAltScreenChange(i%2 == 0))
		}
		if i%17 == 0 {
			clk.advance(time.Second)
			collect(d.CheckDebounce(clk.now()))
		}
	}
	collect(d.Flush())

	seen := make(map[int]bool)
	for i, b := range blocks {
		if b.Rows.Len() != len(b.Lines) {
			t.Fatalf("block %d: rows %v but %d lines", i, b.Rows, len(b.Lines))
		}
		for r := b.Rows.Start; r < b.Rows.End; r++ {
			if seen[r] {
				t.Fatalf("row %d emitted twice", r)
			}
			seen[r] = true
		}
		if i > 0 && blocks[i-1].Rows.Overlaps(b.Rows) {
			t.Fatalf("blocks %d and %d overlap", i-1, i)
		}
	}
	// Every non-blank content line lands in some block.
	count := 0
	for _, b := range blocks {
		for _, l := range b.Lines {
			if l != "" {
				count++
			}
		}
	}
	if want := 60 - countBlankSubstitutions(60); count != want {
		t.Errorf("expected %d content lines across blocks, got %d", want, count)
	}
}

func countBlankSubstitutions(n int) int {
	c := 0
	for i := 0; i < n; i++ {
		if i%9 == 4 {
			c++
		}
	}
	return c
}

func TestParseScope(t *testing.T) {
	tests := map[string]Scope{
		"command_output": ScopeCommandOutput,
		"all":            ScopeAll,
		"manual_only":    ScopeManualOnly,
		"MANUAL":         ScopeManualOnly,
		"bogus":          ScopeAll,
	}
	for in, want := range tests {
		if got := ParseScope(in); got != want {
			t.Errorf("ParseScope(%q) = %v, want %v", in, got, want)
		}
	}
}
