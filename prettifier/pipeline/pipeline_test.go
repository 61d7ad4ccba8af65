// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/framegrace/prettify/prettifier/boundary"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/types"
)

// ─── Stubs ───────────────────────────────────────────────────────────────────

type stubDetector struct {
	id    string
	match func(types.ContentBlock) bool
	calls int
}

func (d *stubDetector) FormatID() string               { return d.id }
func (d *stubDetector) DisplayName() string            { return strings.ToUpper(d.id) }
func (d *stubDetector) QuickMatch(first []string) bool { return true }

func (d *stubDetector) Detect(b types.ContentBlock) *types.DetectionResult {
	d.calls++
	if !d.match(b) {
		return nil
	}
	return &types.DetectionResult{FormatID: d.id, Confidence: 0.9, MatchedRules: []string{d.id + "_rule"}}
}

// jsonish matches blocks whose first line is an opening brace.
func jsonish() *stubDetector {
	return &stubDetector{id: "json", match: func(b types.ContentBlock) bool {
		return len(b.Lines) > 0 && b.Lines[0] == "{"
	}}
}

type stubRenderer struct {
	id      string
	caps    []types.Capability
	calls   atomic.Int32
	lastLen atomic.Int32
	render  func(types.ContentBlock) (types.RenderedContent, error)
}

func (r *stubRenderer) FormatID() string    { return r.id }
func (r *stubRenderer) DisplayName() string { return r.id }
func (r *stubRenderer) Badge() string       { return "ST" }

func (r *stubRenderer) Capabilities() []types.Capability {
	if r.caps == nil {
		return []types.Capability{types.CapTextStyling}
	}
	return r.caps
}

func (r *stubRenderer) Render(b types.ContentBlock, _ types.RendererConfig) (types.RenderedContent, error) {
	r.calls.Add(1)
	r.lastLen.Store(int32(len(b.Lines)))
	if r.render != nil {
		return r.render(b)
	}
	rc := types.RenderedContent{Badge: r.Badge()}
	for i, l := range b.Lines {
		rc.Push(types.PlainLine("R:"+l), i)
	}
	return rc, nil
}

type asyncRenderer struct {
	stubRenderer
	gate      chan struct{}
	ignoreCtx bool
}

func newAsync(id string) *asyncRenderer {
	return &asyncRenderer{stubRenderer: stubRenderer{id: id}, gate: make(chan struct{})}
}

func (r *asyncRenderer) Placeholder(b types.ContentBlock, _ types.RendererConfig) types.RenderedContent {
	var rc types.RenderedContent
	rc.Push(types.PlainLine("rendering…"), 0)
	return rc
}

func (r *asyncRenderer) RenderContext(ctx context.Context, b types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	if r.ignoreCtx {
		<-r.gate
	} else {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return types.RenderedContent{}, ctx.Err()
		}
	}
	return r.stubRenderer.Render(b, cfg)
}

func newTestPipeline(t *testing.T, opts Options, dets []types.Detector, rends ...types.Renderer) *Pipeline {
	t.Helper()
	reg := registry.New(0.5)
	for _, d := range dets {
		reg.RegisterDetector(50, d)
	}
	for _, r := range rends {
		reg.RegisterRenderer(r.FormatID(), r)
	}
	p := New(reg, opts)
	t.Cleanup(p.Close)
	return p
}

func renderedText(t *testing.T, b *PrettifiedBlock) string {
	t.Helper()
	text, ok := b.Buffer.RenderedText()
	if !ok {
		t.Fatalf("block %d has no rendered text (err=%v)", b.ID, b.RenderErr)
	}
	return text
}

func waitNotify(t *testing.T, p *Pipeline) {
	t.Helper()
	select {
	case <-p.Notify():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async completion")
	}
}

var jsonLines = []string{"{", `  "a": 1`, "}"}

// ─── Stream flow ─────────────────────────────────────────────────────────────

func TestProcessOutput_DetectsAndRenders(t *testing.T) {
	det := jsonish()
	rend := &stubRenderer{id: "json"}
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{det}, rend)

	for i, l := range append(jsonLines, "", "") {
		p.ProcessOutput(l, i)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 block, got %d", p.Len())
	}
	b := p.Blocks()[0]
	if b.Detection.FormatID != "json" || b.Detection.Source != types.AutoDetected {
		t.Errorf("detection = %+v", b.Detection)
	}
	if b.Rows() != (types.RowRange{Start: 0, End: 3}) {
		t.Errorf("rows = %v", b.Rows())
	}
	if got := renderedText(t, b); got != "R:{\nR:  \"a\": 1\nR:}" {
		t.Errorf("rendered = %q", got)
	}
	if b.Badge() != "ST" {
		t.Errorf("badge = %q", b.Badge())
	}
}

func TestProcessOutput_DisabledStillFeedsBoundary(t *testing.T) {
	det := jsonish()
	opts := DefaultOptions()
	opts.Enabled = false
	p := newTestPipeline(t, opts, []types.Detector{det}, &stubRenderer{id: "json"})

	p.ProcessOutput("{", 0)
	if p.Pending() != 1 {
		t.Errorf("boundary should accumulate while disabled, pending=%d", p.Pending())
	}
	p.Flush()
	if p.Len() != 0 || det.calls != 0 {
		t.Errorf("disabled pipeline detected: blocks=%d calls=%d", p.Len(), det.calls)
	}
}

func TestCommandLifecycle(t *testing.T) {
	det := jsonish()
	opts := DefaultOptions()
	opts.Boundary.Scope = boundary.ScopeCommandOutput
	p := newTestPipeline(t, opts, []types.Detector{det}, &stubRenderer{id: "json"})

	// An empty command window emits a zero-line block that is discarded.
	p.OnCommandStart("true")
	p.OnCommandEnd()
	if p.Len() != 0 || det.calls != 0 {
		t.Fatalf("empty block reached detection: blocks=%d calls=%d", p.Len(), det.calls)
	}

	p.OnCommandStart("cat data.json")
	for i, l := range jsonLines {
		p.ProcessOutput(l, 10+i)
	}
	p.OnCommandEnd()
	if p.Len() != 1 {
		t.Fatalf("expected 1 block, got %d", p.Len())
	}
	if cmd := p.Blocks()[0].Content().PrecedingCommand; cmd != "cat data.json" {
		t.Errorf("command = %q", cmd)
	}
}

func TestCheckDebounce(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	opts := DefaultOptions()
	opts.Clock = func() time.Time { return t0 }
	p := newTestPipeline(t, opts, []types.Detector{jsonish()}, &stubRenderer{id: "json"})

	for i, l := range jsonLines {
		p.ProcessOutput(l, i)
	}
	p.CheckDebounce(t0.Add(50 * time.Millisecond))
	if p.Len() != 0 {
		t.Fatal("emitted before the debounce interval")
	}
	p.CheckDebounce(t0.Add(150 * time.Millisecond))
	if p.Len() != 1 {
		t.Fatalf("expected 1 block after debounce, got %d", p.Len())
	}
}

func TestAltScreenChangeEmits(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{jsonish()}, &stubRenderer{id: "json"})
	for i, l := range jsonLines {
		p.ProcessOutput(l, i)
	}
	p.OnAltScreenChange(true)
	if p.Len() != 1 {
		t.Fatalf("expected 1 block, got %d", p.Len())
	}
}

// ─── Trigger & suppression ──────────────────────────────────────────────────

func TestTriggerPrettify_BypassesDetection(t *testing.T) {
	det := jsonish()
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{det}, &stubRenderer{id: "yaml"})

	id, ok := p.TriggerPrettify("yaml", types.NewBlock([]string{"key: value"}, "", 5))
	if !ok {
		t.Fatal("trigger did not create a block")
	}
	b := p.Block(id)
	if b.Detection.Confidence != 1.0 || b.Detection.Source != types.TriggerInvoked {
		t.Errorf("detection = %+v", b.Detection)
	}
	if det.calls != 0 {
		t.Errorf("trigger ran detection %d times", det.calls)
	}
	if got := renderedText(t, b); got != "R:key: value" {
		t.Errorf("rendered = %q", got)
	}
}

func TestTriggerNone_SuppressesAutoDetection(t *testing.T) {
	det := jsonish()
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{det}, &stubRenderer{id: "json"})

	block := types.NewBlock(jsonLines, "", 10)
	if _, ok := p.TriggerPrettify(SuppressFormat, block); ok {
		t.Fatal("none trigger must not create a block")
	}
	if !p.IsSuppressed(types.RowRange{Start: 10, End: 13}) {
		t.Error("range should be suppressed")
	}
	if !p.IsSuppressed(types.RowRange{Start: 11, End: 12}) {
		t.Error("contained range should be suppressed")
	}
	if p.IsSuppressed(types.RowRange{Start: 9, End: 13}) {
		t.Error("partially covered range is not suppressed")
	}

	p.SubmitCommandOutput(jsonLines, "", 10)
	if p.Len() != 0 || det.calls != 0 {
		t.Errorf("suppressed block was detected: blocks=%d calls=%d", p.Len(), det.calls)
	}

	p.SuppressDetection(types.RowRange{Start: 10, End: 13})
	if len(p.suppressed) != 1 {
		t.Errorf("duplicate suppression stored: %v", p.suppressed)
	}
}

// ─── Toggles ─────────────────────────────────────────────────────────────────

func TestToggleGlobal(t *testing.T) {
	tests := []struct {
		name   string
		master bool
		want   []bool
		over   []Override
	}{
		{"master on", true, []bool{false, true, false}, []Override{ForcedOff, FollowConfig, ForcedOff}},
		{"master off", false, []bool{true, false}, []Override{ForcedOn, FollowConfig}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Enabled = tt.master
			p := newTestPipeline(t, opts, nil)
			if p.IsEnabled() != tt.master {
				t.Fatalf("initial IsEnabled = %v", p.IsEnabled())
			}
			for i := range tt.want {
				p.ToggleGlobal()
				if p.IsEnabled() != tt.want[i] || p.Override() != tt.over[i] {
					t.Errorf("toggle %d: enabled=%v override=%v, want %v %v",
						i, p.IsEnabled(), p.Override(), tt.want[i], tt.over[i])
				}
			}
		})
	}
}

func TestOverrideWinsOverConfig(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), nil)
	p.ToggleGlobal()
	p.SetEnabled(true)
	if p.IsEnabled() {
		t.Error("forced-off override must win over the configured flag")
	}
}

func TestToggleBlock(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), nil, &stubRenderer{id: "json"})
	a, _ := p.TriggerPrettify("json", types.NewBlock([]string{"a"}, "", 0))
	b, _ := p.TriggerPrettify("json", types.NewBlock([]string{"b"}, "", 5))

	if !p.ToggleBlock(a) {
		t.Fatal("ToggleBlock returned false for a live block")
	}
	if p.Block(a).ViewMode() != types.ViewSource {
		t.Error("toggled block should show source")
	}
	if p.Block(b).ViewMode() != types.ViewRendered {
		t.Error("other block must not change")
	}
	if p.ToggleBlock(999) {
		t.Error("unknown id should report false")
	}
}

// ─── Queries ─────────────────────────────────────────────────────────────────

func TestBlockAt(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), nil, &stubRenderer{id: "json"})
	third, _ := p.TriggerPrettify("json", types.NewBlock([]string{"1", "2", "3", "4"}, "", 10))
	first, _ := p.TriggerPrettify("json", types.NewBlock([]string{"1", "2", "3"}, "", 0))
	second, _ := p.TriggerPrettify("json", types.NewBlock([]string{"1"}, "", 5))

	tests := []struct {
		row  int
		want uint64
		hit  bool
	}{
		{-1, 0, false},
		{0, first, true},
		{2, first, true},
		{3, 0, false},
		{5, second, true},
		{6, 0, false},
		{10, third, true},
		{13, third, true},
		{14, 0, false},
	}
	for _, tt := range tests {
		b := p.BlockAt(tt.row)
		if (b != nil) != tt.hit || (b != nil && b.ID != tt.want) {
			t.Errorf("BlockAt(%d) = %v, want id %d hit %v", tt.row, b, tt.want, tt.hit)
		}
	}

	var starts []int
	for _, b := range p.Blocks() {
		starts = append(starts, b.Rows().Start)
	}
	if fmt.Sprint(starts) != "[0 5 10]" {
		t.Errorf("blocks not ordered by row: %v", starts)
	}
}

func TestCopyText(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), nil, &stubRenderer{id: "json"})
	id, _ := p.TriggerPrettify("json", types.NewBlock([]string{"a", "b"}, "", 0))

	if got, _ := p.CopyText(id, CopyRendered); got != "R:a\nR:b" {
		t.Errorf("rendered copy = %q", got)
	}
	if got, _ := p.CopyText(id, CopySource); got != "a\nb" {
		t.Errorf("source copy = %q", got)
	}
	if _, ok := p.CopyText(42, CopySource); ok {
		t.Error("unknown id should report false")
	}
	if ParseCopyMode("source") != CopySource || ParseCopyMode("bogus") != CopyRendered {
		t.Error("ParseCopyMode mismatch")
	}
}

// ─── Replacement ─────────────────────────────────────────────────────────────

func TestOverlappingBlocks(t *testing.T) {
	det := jsonish()
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{det}, &stubRenderer{id: "json"})

	p.SubmitCommandOutput(jsonLines, "", 0)
	orig := p.Blocks()[0].ID

	p.SubmitCommandOutput(jsonLines, "", 0)
	if p.Len() != 1 || p.Blocks()[0].ID != orig {
		t.Fatalf("identical content should keep the existing block")
	}

	changed := []string{"{", `  "b": 2`, `  "c": 3`, "}"}
	p.SubmitCommandOutput(changed, "", 1)
	if p.Len() != 1 || p.Blocks()[0].ID == orig {
		t.Fatalf("changed content should replace the overlapping block")
	}
	if p.Blocks()[0].Content().Lines[1] != `  "b": 2` {
		t.Errorf("replacement content = %v", p.Blocks()[0].Content().Lines)
	}

	p.SubmitCommandOutput([]string{"plain text"}, "", 2)
	if p.Len() != 0 {
		t.Error("stale block should be removed when its rows no longer match")
	}
}

func TestEviction(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), nil, &stubRenderer{id: "json"})
	p.SuppressDetection(types.RowRange{Start: 0, End: 1})
	p.SuppressDetection(types.RowRange{Start: 1000, End: 1001})

	for i := 0; i < MaxActiveBlocks+2; i++ {
		p.TriggerPrettify("json", types.NewBlock([]string{fmt.Sprint(i)}, "", i*2))
	}
	if p.Len() != MaxActiveBlocks {
		t.Fatalf("len = %d, want %d", p.Len(), MaxActiveBlocks)
	}
	if p.Block(0) != nil || p.Block(1) != nil || p.Block(2) == nil {
		t.Error("oldest blocks should be evicted first")
	}
	if p.IsSuppressed(types.RowRange{Start: 0, End: 1}) {
		t.Error("suppression below the oldest block should be pruned")
	}
	if !p.IsSuppressed(types.RowRange{Start: 1000, End: 1001}) {
		t.Error("later suppression must survive")
	}
}

func TestReset(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{jsonish()}, &stubRenderer{id: "json"})
	p.TriggerPrettify("json", types.NewBlock([]string{"a"}, "", 0))
	p.SuppressDetection(types.RowRange{Start: 5, End: 6})
	p.ProcessOutput("{", 10)

	p.Reset()
	if p.Len() != 0 || p.Pending() != 0 || p.IsSuppressed(types.RowRange{Start: 5, End: 6}) {
		t.Errorf("reset left state: blocks=%d pending=%d", p.Len(), p.Pending())
	}
}

// ─── Rendering ───────────────────────────────────────────────────────────────

func TestRenderFailure_FallsBackToSource(t *testing.T) {
	rend := &stubRenderer{id: "json", render: func(types.ContentBlock) (types.RenderedContent, error) {
		return types.RenderedContent{}, types.Failed("unexpected token")
	}}
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{jsonish()}, rend)

	bad := []string{"{", "  bad", "}"}
	p.SubmitCommandOutput(bad, "", 0)
	if p.Len() != 1 {
		t.Fatalf("failed render should still track the block")
	}
	b := p.Blocks()[0]
	if !types.IsRenderKind(b.RenderErr, types.RenderFailed) {
		t.Errorf("RenderErr = %v", b.RenderErr)
	}
	if b.HasRendered() {
		t.Error("failed block must not keep rendered output")
	}
	var shown []string
	for _, l := range b.Buffer.DisplayLines() {
		shown = append(shown, l.PlainText())
	}
	if strings.Join(shown, "\n") != strings.Join(bad, "\n") {
		t.Errorf("display = %q", shown)
	}
	if got, _ := p.CopyText(b.ID, CopyRendered); got != strings.Join(bad, "\n") {
		t.Errorf("copy = %q", got)
	}

	// Not retried at the same width.
	p.ReRenderIfNeeded(0)
	if rend.calls.Load() != 1 {
		t.Errorf("failed render retried: %d calls", rend.calls.Load())
	}
	p.ReRenderIfNeeded(100)
	if rend.calls.Load() != 2 {
		t.Errorf("resize should retry: %d calls", rend.calls.Load())
	}
}

func TestRendererPanic_IsContained(t *testing.T) {
	boom := &stubRenderer{id: "json", render: func(types.ContentBlock) (types.RenderedContent, error) {
		panic("index out of range")
	}}
	p := newTestPipeline(t, DefaultOptions(), nil, boom, &stubRenderer{id: "yaml"})

	id, _ := p.TriggerPrettify("json", types.NewBlock([]string{"{"}, "", 0))
	if err := p.Block(id).RenderErr; !types.IsRenderKind(err, types.RenderFailed) ||
		!strings.Contains(err.Error(), "panicked") {
		t.Errorf("RenderErr = %v", err)
	}
	id2, _ := p.TriggerPrettify("yaml", types.NewBlock([]string{"a: 1"}, "", 2))
	if !p.Block(id2).HasRendered() {
		t.Error("pipeline should keep working after a renderer panic")
	}
}

func TestNoRenderer(t *testing.T) {
	p := newTestPipeline(t, DefaultOptions(), nil)
	id, _ := p.TriggerPrettify("mystery", types.NewBlock([]string{"x"}, "", 0))
	if err := p.Block(id).RenderErr; !errors.Is(err, ErrNoRenderer) {
		t.Errorf("RenderErr = %v", err)
	}
}

func TestCapabilityGating(t *testing.T) {
	rend := &stubRenderer{id: "diagrams", caps: []types.Capability{types.CapTextStyling, types.CapNetworkAccess}}
	p := newTestPipeline(t, DefaultOptions(), nil, rend)

	id, _ := p.TriggerPrettify("diagrams", types.NewBlock([]string{"graph TD"}, "", 0))
	var capErr *CapabilityError
	if !errors.As(p.Block(id).RenderErr, &capErr) || capErr.Capability != types.CapNetworkAccess {
		t.Fatalf("RenderErr = %v", p.Block(id).RenderErr)
	}
	if rend.calls.Load() != 0 {
		t.Error("gated renderer must not run")
	}

	cfg := p.RendererConfig()
	cfg.Granted = []types.Capability{types.CapNetworkAccess}
	ids := p.UpdateRendererConfig(cfg)
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("re-rendered ids = %v", ids)
	}
	if !p.Block(id).HasRendered() || p.Block(id).RenderErr != nil {
		t.Errorf("granted renderer should run: err=%v", p.Block(id).RenderErr)
	}
}

func TestRenderCache_SameContentRendersOnce(t *testing.T) {
	rend := &stubRenderer{id: "json"}
	p := newTestPipeline(t, DefaultOptions(), []types.Detector{jsonish()}, rend)

	p.SubmitCommandOutput(jsonLines, "", 0)
	p.SubmitCommandOutput(jsonLines, "", 20)
	if p.Len() != 2 {
		t.Fatalf("expected 2 blocks, got %d", p.Len())
	}
	if rend.calls.Load() != 1 {
		t.Errorf("renderer called %d times, want 1", rend.calls.Load())
	}
	blocks := p.Blocks()
	if renderedText(t, blocks[0]) != renderedText(t, blocks[1]) {
		t.Error("cached render differs from the fresh one")
	}
	if s := p.CacheStats(); s.Hits != 1 || s.Entries != 1 {
		t.Errorf("cache stats = %+v", s)
	}
}

func TestReRenderIfNeeded(t *testing.T) {
	rend := &stubRenderer{id: "json"}
	p := newTestPipeline(t, DefaultOptions(), nil, rend)
	id, _ := p.TriggerPrettify("json", types.NewBlock([]string{"a"}, "", 0))

	if ids := p.ReRenderIfNeeded(80); len(ids) != 0 || rend.calls.Load() != 1 {
		t.Errorf("same width re-rendered: ids=%v calls=%d", ids, rend.calls.Load())
	}
	if ids := p.ReRenderIfNeeded(120); len(ids) != 1 || rend.calls.Load() != 2 {
		t.Errorf("resize: ids=%v calls=%d", ids, rend.calls.Load())
	}
	if w := p.Block(id).Buffer.RenderedWidth(); w != 120 {
		t.Errorf("rendered width = %d", w)
	}
	p.ReRenderIfNeeded(80)
	if rend.calls.Load() != 2 {
		t.Errorf("returning to a cached width should hit the cache: %d calls", rend.calls.Load())
	}
}

func TestVirtualBlock_RendersWindow(t *testing.T) {
	rend := &stubRenderer{id: "log"}
	p := newTestPipeline(t, DefaultOptions(), nil, rend)

	lines := make([]string, 10_001)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	id, _ := p.TriggerPrettify("log", types.NewBlock(lines, "", 0))
	b := p.Block(id)
	if !b.Buffer.IsVirtual() {
		t.Fatal("block should be virtual")
	}
	if n := rend.lastLen.Load(); n != VisibleWindow {
		t.Errorf("initial render saw %d lines, want %d", n, VisibleWindow)
	}

	if !p.RenderVisible(id, 5000, 50) {
		t.Fatal("RenderVisible should render an uncovered range")
	}
	start, end, _ := b.Buffer.Window()
	if start != 4925 || end != 5125 {
		t.Errorf("window = [%d,%d)", start, end)
	}
	if p.RenderVisible(id, 5010, 10) {
		t.Error("covered range should not re-render")
	}
	if got := b.Buffer.DisplayLinesRange(5000, 5001)[0].PlainText(); got != "R:line 5000" {
		t.Errorf("display line 5000 = %q", got)
	}
	if got := b.Buffer.DisplayLinesRange(9000, 9001)[0].PlainText(); got != "line 9000" {
		t.Errorf("outside the window shows source, got %q", got)
	}
}

// ─── Async ───────────────────────────────────────────────────────────────────

func TestAsync_PlaceholderThenCompletion(t *testing.T) {
	rend := newAsync("diagrams")
	p := newTestPipeline(t, DefaultOptions(), nil, rend)

	id, _ := p.TriggerPrettify("diagrams", types.NewBlock([]string{"x"}, "", 0))
	b := p.Block(id)
	if got := renderedText(t, b); got != "rendering…" || !b.Pending() {
		t.Fatalf("placeholder = %q pending=%v", got, b.Pending())
	}
	if got, _ := p.CopyText(id, CopyRendered); got != "x" {
		t.Errorf("copy during render should use source, got %q", got)
	}

	close(rend.gate)
	waitNotify(t, p)
	ids := p.ApplyCompletions()
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("completions = %v", ids)
	}
	if got := renderedText(t, b); got != "R:x" || b.Pending() {
		t.Errorf("final = %q pending=%v", got, b.Pending())
	}
	if p.CacheStats().Entries != 1 {
		t.Error("async result should be cached")
	}
}

func TestAsync_EvictedBlockIsDropped(t *testing.T) {
	rend := newAsync("diagrams")
	p := newTestPipeline(t, DefaultOptions(), nil, rend)

	p.TriggerPrettify("diagrams", types.NewBlock([]string{"x"}, "", 0))
	p.Reset()
	close(rend.gate)
	waitNotify(t, p)
	if ids := p.ApplyCompletions(); len(ids) != 0 {
		t.Errorf("completion for a dropped block applied: %v", ids)
	}
}

func TestAsync_Timeout(t *testing.T) {
	rend := newAsync("diagrams")
	rend.ignoreCtx = true
	defer close(rend.gate)

	opts := DefaultOptions()
	opts.Renderer.Timeout = 20 * time.Millisecond
	p := newTestPipeline(t, opts, nil, rend)

	id, _ := p.TriggerPrettify("diagrams", types.NewBlock([]string{"x"}, "", 0))
	waitNotify(t, p)
	p.ApplyCompletions()
	b := p.Block(id)
	if !types.IsRenderKind(b.RenderErr, types.Timeout) {
		t.Errorf("RenderErr = %v", b.RenderErr)
	}
	if b.HasRendered() {
		t.Error("timed-out block should fall back to source")
	}
}

func TestAsync_StaleWidthIsDropped(t *testing.T) {
	rend := newAsync("diagrams")
	p := newTestPipeline(t, DefaultOptions(), nil, rend)

	id, _ := p.TriggerPrettify("diagrams", types.NewBlock([]string{"x"}, "", 0))
	p.ReRenderIfNeeded(100)
	close(rend.gate)

	b := p.Block(id)
	applied := 0
	deadline := time.After(2 * time.Second)
	for b.Pending() {
		select {
		case <-p.Notify():
			applied += len(p.ApplyCompletions())
		case <-deadline:
			t.Fatal("timed out waiting for completion")
		}
	}
	if applied != 1 {
		t.Errorf("applied %d completions, want 1", applied)
	}
	if w := b.Buffer.RenderedWidth(); w != 100 {
		t.Errorf("rendered width = %d, want 100", w)
	}
}
