// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/pipeline/pipeline.go
// Summary: Host facade tying boundary detection, format detection,
// rendering and the render cache together.
//
// All methods except Notify must be called from a single goroutine, the
// host's event loop. Slow renderers run in the background and hand their
// results back through ApplyCompletions on that same goroutine.

package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/boundary"
	"github.com/framegrace/prettify/prettifier/buffer"
	"github.com/framegrace/prettify/prettifier/cache"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/types"
)

var logger = logging.For("PIPELINE")

const (
	// DefaultCacheSize is the render cache capacity when none is configured.
	DefaultCacheSize = 64
	// MaxActiveBlocks caps tracked blocks; the oldest are evicted first.
	MaxActiveBlocks = 128
	// SuppressFormat is the trigger format that disables auto-detection for
	// a row range instead of rendering.
	SuppressFormat = "none"
	// VisibleWindow is the number of source lines rendered at a time for
	// virtual blocks.
	VisibleWindow = 200
	// DefaultRenderTimeout bounds async renders when the renderer config
	// has no timeout.
	DefaultRenderTimeout = 10 * time.Second

	completionQueue = 32
)

// Override is the session-scoped enable state. It never writes back to
// configuration.
type Override int

const (
	FollowConfig Override = iota
	ForcedOn
	ForcedOff
)

func (o Override) String() string {
	switch o {
	case ForcedOn:
		return "forced_on"
	case ForcedOff:
		return "forced_off"
	default:
		return "follow_config"
	}
}

// Options configures a pipeline.
type Options struct {
	Enabled  bool
	Boundary boundary.Config
	// ConfidenceThreshold replaces the registry's global floor when > 0.
	ConfidenceThreshold float64
	// CacheSize of 0 disables the render cache.
	CacheSize int
	Renderer  types.RendererConfig
	// Clock stamps boundary output. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns an enabled pipeline with stock settings.
func DefaultOptions() Options {
	return Options{
		Enabled:   true,
		Boundary:  boundary.DefaultConfig(),
		CacheSize: DefaultCacheSize,
		Renderer:  types.DefaultRendererConfig(),
	}
}

// Pipeline is the per-session prettifier.
type Pipeline struct {
	boundary *boundary.Detector
	registry *registry.Registry
	cache    *cache.RenderCache
	rcfg     types.RendererConfig

	blocks     []*PrettifiedBlock // ordered by start row, non-overlapping
	suppressed []types.RowRange
	nextID     uint64

	enabled  bool
	override Override

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	completions chan completion
	notify      chan struct{}
}

// New builds a pipeline around reg. The pipeline closes reg on Close.
func New(reg *registry.Registry, opts Options) *Pipeline {
	if reg == nil {
		reg = registry.New(registry.DefaultConfidenceThreshold)
	}
	if opts.ConfidenceThreshold > 0 {
		reg.SetConfidenceThreshold(opts.ConfidenceThreshold)
	}
	bd := boundary.New(opts.Boundary)
	if opts.Clock != nil {
		bd.SetClock(opts.Clock)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		boundary:    bd,
		registry:    reg,
		cache:       cache.New(opts.CacheSize),
		rcfg:        opts.Renderer,
		enabled:     opts.Enabled,
		ctx:         ctx,
		cancel:      cancel,
		completions: make(chan completion, completionQueue),
		notify:      make(chan struct{}, 1),
	}
}

// Registry returns the active registry.
func (p *Pipeline) Registry() *registry.Registry { return p.registry }

// RendererConfig returns the config renders currently use.
func (p *Pipeline) RendererConfig() types.RendererConfig { return p.rcfg }

// CacheStats returns render cache counters.
func (p *Pipeline) CacheStats() cache.Stats { return p.cache.Stats() }

// Pending returns the number of lines the boundary detector holds.
func (p *Pipeline) Pending() int { return p.boundary.Pending() }

// ─── Stream input ───────────────────────────────────────────────────────────

// ProcessOutput feeds one output line at an absolute row. The boundary
// detector is fed even while disabled so row tracking stays correct.
func (p *Pipeline) ProcessOutput(line string, row int) {
	p.handle(p.boundary.PushLine(line, row))
}

// OnCommandStart forwards a shell command-start event.
func (p *Pipeline) OnCommandStart(command string) {
	p.boundary.OnCommandStart(command)
}

// OnCommandEnd forwards a shell command-end event.
func (p *Pipeline) OnCommandEnd() {
	p.handle(p.boundary.OnCommandEnd())
}

// OnAltScreenChange forwards an alternate-screen transition.
func (p *Pipeline) OnAltScreenChange(entering bool) {
	p.handle(p.boundary.OnAltScreenChange(entering))
}

// OnProcessChange forwards a foreground-process change.
func (p *Pipeline) OnProcessChange() {
	p.handle(p.boundary.OnProcessChange())
}

// CheckDebounce is the host's idle tick.
func (p *Pipeline) CheckDebounce(now time.Time) {
	p.handle(p.boundary.CheckDebounce(now))
}

// Flush force-emits whatever is accumulated.
func (p *Pipeline) Flush() {
	p.handle(p.boundary.Flush())
}

// SubmitCommandOutput detects a complete command output read back from
// scrollback, bypassing line accumulation.
func (p *Pipeline) SubmitCommandOutput(lines []string, command string, startRow int) {
	p.boundary.Reset()
	if len(lines) == 0 {
		logger.Debug("submit: empty output, skipping")
		return
	}
	block := types.NewBlock(lines, command, startRow)
	p.handle(&block)
}

func (p *Pipeline) handle(block *types.ContentBlock) {
	if block == nil {
		return
	}
	if !p.IsEnabled() {
		logger.Debug("disabled, dropping block", "rows", block.Rows)
		return
	}
	if block.IsEmpty() {
		return
	}
	if p.IsSuppressed(block.Rows) {
		logger.Debug("suppressed, skipping detection", "rows", block.Rows)
		return
	}

	hash := buffer.ContentHash(block.Lines)
	res := p.registry.Detect(*block)
	if res == nil {
		// Content at these rows changed and no longer matches anything.
		p.removeOverlapping(block.Rows, func(b *PrettifiedBlock) bool {
			return b.Buffer.ContentHash() != hash
		})
		return
	}
	for _, b := range p.blocks {
		if b.Rows().Overlaps(block.Rows) && b.Buffer.ContentHash() == hash {
			return
		}
	}
	p.removeOverlapping(block.Rows, nil)

	logger.Debug("block detected", "format", res.FormatID,
		"confidence", fmt.Sprintf("%.2f", res.Confidence), "rows", block.Rows, "lines", len(block.Lines))
	p.add(*block, *res)
}

// TriggerPrettify renders block as formatID without scoring. The
// SuppressFormat id records a suppression instead. It returns the new
// block's id.
func (p *Pipeline) TriggerPrettify(formatID string, block types.ContentBlock) (uint64, bool) {
	if formatID == SuppressFormat {
		p.SuppressDetection(block.Rows)
		return 0, false
	}
	if block.IsEmpty() {
		return 0, false
	}
	p.removeOverlapping(block.Rows, nil)
	b := p.add(block, types.DetectionResult{
		FormatID:   formatID,
		Confidence: 1.0,
		Source:     types.TriggerInvoked,
	})
	logger.Debug("trigger", "format", formatID, "rows", block.Rows, "id", b.ID)
	return b.ID, true
}

func (p *Pipeline) add(block types.ContentBlock, res types.DetectionResult) *PrettifiedBlock {
	b := &PrettifiedBlock{
		ID:        p.nextID,
		Buffer:    buffer.New(block),
		Detection: res,
	}
	p.nextID++
	p.renderBlock(b)

	idx := sort.Search(len(p.blocks), func(i int) bool {
		return p.blocks[i].Rows().Start > block.Rows.Start
	})
	p.blocks = append(p.blocks, nil)
	copy(p.blocks[idx+1:], p.blocks[idx:])
	p.blocks[idx] = b
	p.evict()
	return b
}

func (p *Pipeline) removeOverlapping(rows types.RowRange, pred func(*PrettifiedBlock) bool) {
	kept := p.blocks[:0]
	for _, b := range p.blocks {
		if b.Rows().Overlaps(rows) && (pred == nil || pred(b)) {
			logger.Debug("removing replaced block", "id", b.ID, "rows", b.Rows())
			continue
		}
		kept = append(kept, b)
	}
	clear(p.blocks[len(kept):])
	p.blocks = kept
}

// evict drops the oldest blocks beyond MaxActiveBlocks and prunes
// suppressions that end before the oldest surviving block.
func (p *Pipeline) evict() {
	if len(p.blocks) <= MaxActiveBlocks {
		return
	}
	for len(p.blocks) > MaxActiveBlocks {
		oldest := 0
		for i, b := range p.blocks {
			if b.ID < p.blocks[oldest].ID {
				oldest = i
			}
		}
		logger.Debug("evicting block", "id", p.blocks[oldest].ID, "rows", p.blocks[oldest].Rows())
		p.blocks = append(p.blocks[:oldest], p.blocks[oldest+1:]...)
	}
	minRow := p.blocks[0].Rows().Start
	kept := p.suppressed[:0]
	for _, r := range p.suppressed {
		if r.End > minRow {
			kept = append(kept, r)
		}
	}
	p.suppressed = kept
}

// ─── Suppression ────────────────────────────────────────────────────────────

// SuppressDetection stops auto-detection for blocks inside rows.
func (p *Pipeline) SuppressDetection(rows types.RowRange) {
	for _, r := range p.suppressed {
		if r == rows {
			return
		}
	}
	p.suppressed = append(p.suppressed, rows)
}

// IsSuppressed reports whether a recorded suppression covers rows entirely.
func (p *Pipeline) IsSuppressed(rows types.RowRange) bool {
	for _, r := range p.suppressed {
		if r.Covers(rows) {
			return true
		}
	}
	return false
}

// ─── Toggles ────────────────────────────────────────────────────────────────

// IsEnabled applies the session override over the configured flag.
func (p *Pipeline) IsEnabled() bool {
	switch p.override {
	case ForcedOn:
		return true
	case ForcedOff:
		return false
	default:
		return p.enabled
	}
}

// SetEnabled changes the configured flag, e.g. after a config reload. The
// session override still applies on top.
func (p *Pipeline) SetEnabled(enabled bool) { p.enabled = enabled }

// Override returns the session override.
func (p *Pipeline) Override() Override { return p.override }

// ToggleGlobal flips the effective state for this session. Flipping back to
// the configured state clears the override.
func (p *Pipeline) ToggleGlobal() {
	want := !p.IsEnabled()
	switch {
	case want == p.enabled:
		p.override = FollowConfig
	case want:
		p.override = ForcedOn
	default:
		p.override = ForcedOff
	}
	logger.Info("prettifier toggled", "enabled", want, "override", p.override)
}

// ToggleBlock flips the view of one block.
func (p *Pipeline) ToggleBlock(id uint64) bool {
	b := p.Block(id)
	if b == nil {
		return false
	}
	b.Buffer.ToggleView()
	return true
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Blocks returns the active blocks ordered by row. The slice is a copy;
// callers must not mutate the blocks.
func (p *Pipeline) Blocks() []*PrettifiedBlock {
	out := make([]*PrettifiedBlock, len(p.blocks))
	copy(out, p.blocks)
	return out
}

// Len returns the number of active blocks.
func (p *Pipeline) Len() int { return len(p.blocks) }

// Block returns the active block with id, or nil.
func (p *Pipeline) Block(id uint64) *PrettifiedBlock {
	for _, b := range p.blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// BlockAt returns the block covering row, or nil.
func (p *Pipeline) BlockAt(row int) *PrettifiedBlock {
	idx := sort.Search(len(p.blocks), func(i int) bool {
		return p.blocks[i].Rows().Start > row
	})
	if idx == 0 {
		return nil
	}
	if b := p.blocks[idx-1]; b.Rows().Contains(row) {
		return b
	}
	return nil
}

// CopyText returns the text to place on the clipboard for a block. Rendered
// mode falls back to source while there is no finished render.
func (p *Pipeline) CopyText(id uint64, mode CopyMode) (string, bool) {
	b := p.Block(id)
	if b == nil {
		return "", false
	}
	if mode == CopyRendered && b.RenderErr == nil && !b.pending {
		if text, ok := b.Buffer.RenderedText(); ok {
			return text, true
		}
	}
	return b.Buffer.SourceText(), true
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Reset drops all blocks, suppressions and accumulated lines. Background
// renders for dropped blocks are discarded when they complete.
func (p *Pipeline) Reset() {
	p.boundary.Reset()
	clear(p.blocks)
	p.blocks = p.blocks[:0]
	p.suppressed = nil
}

// UpdateRendererConfig swaps the host environment and re-renders every
// block. Cached renders are dropped since theme or capabilities may differ.
func (p *Pipeline) UpdateRendererConfig(cfg types.RendererConfig) []uint64 {
	p.rcfg = cfg
	p.cache.Clear()
	return p.rerenderAll()
}

// ReplaceRegistry installs a rebuilt registry after a config reload. The
// previous registry is left open; background renders may still use it.
func (p *Pipeline) ReplaceRegistry(reg *registry.Registry) []uint64 {
	p.registry = reg
	p.cache.Clear()
	return p.rerenderAll()
}

// Reconfigure installs a rebuilt registry and renderer config together and
// re-renders every block once. The previous registry is left open.
func (p *Pipeline) Reconfigure(reg *registry.Registry, cfg types.RendererConfig) []uint64 {
	if reg != nil {
		p.registry = reg
	}
	p.rcfg = cfg
	p.cache.Clear()
	return p.rerenderAll()
}

func (p *Pipeline) rerenderAll() []uint64 {
	ids := make([]uint64, 0, len(p.blocks))
	for _, b := range p.blocks {
		p.renderBlock(b)
		ids = append(ids, b.ID)
	}
	return ids
}

// ReRenderIfNeeded re-renders blocks whose render was made at another
// width. A width > 0 also becomes the new terminal width.
func (p *Pipeline) ReRenderIfNeeded(width int) []uint64 {
	if width > 0 {
		p.rcfg.TerminalWidth = width
	}
	w := p.rcfg.Width()
	var ids []uint64
	for _, b := range p.blocks {
		if b.stale(w) {
			p.renderBlock(b)
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// RenderVisible makes sure the rows [first, first+count) of a block,
// relative to its first line, are rendered. Only virtual blocks render
// partially; it reports whether a render was started.
func (p *Pipeline) RenderVisible(id uint64, first, count int) bool {
	b := p.Block(id)
	if b == nil {
		return false
	}
	w := p.rcfg.Width()
	if !b.Buffer.IsVirtual() {
		if !b.stale(w) {
			return false
		}
		p.renderBlock(b)
		return true
	}
	n := len(b.Buffer.Source().Lines)
	first = min(max(first, 0), n)
	end := min(first+max(count, 1), n)
	if b.RenderErr == nil && b.Buffer.CoversWindow(first, end, w) {
		return false
	}
	// Center a VisibleWindow-sized range on the request so small scrolls
	// stay inside it.
	span := max(VisibleWindow, end-first)
	start := max(0, first-(span-(end-first))/2)
	stop := min(n, start+span)
	start = max(0, stop-span)
	p.renderRange(b, start, stop)
	return true
}

// Close cancels background renders, waits for them to exit and closes the
// registry.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
	if err := p.registry.Close(); err != nil {
		logger.Warn("closing renderers", "err", err)
	}
}
