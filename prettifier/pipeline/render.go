// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/framegrace/prettify/prettifier/cache"
	"github.com/framegrace/prettify/prettifier/types"
)

// completion carries a background render back to the event loop.
type completion struct {
	id       uint64
	gen      uint64
	key      cache.Key
	start    int
	end      int
	windowed bool
	content  types.RenderedContent
	err      error
}

// renderBlock brings b up to date at the current width. Virtual blocks
// render their current window, or the first VisibleWindow lines.
func (p *Pipeline) renderBlock(b *PrettifiedBlock) {
	n := len(b.Buffer.Source().Lines)
	start, end := 0, n
	if b.Buffer.IsVirtual() {
		if s, e, ok := b.Buffer.Window(); ok {
			start, end = s, e
		} else {
			end = min(n, VisibleWindow)
		}
	}
	p.renderRange(b, start, end)
}

// renderRange renders source lines [start, end) of b. Only virtual blocks
// use partial ranges, and those never go through the cache.
func (p *Pipeline) renderRange(b *PrettifiedBlock, start, end int) {
	b.gen++
	b.pending = false
	width := p.rcfg.Width()
	formatID := b.Detection.FormatID
	windowed := b.Buffer.IsVirtual()
	src := b.Buffer.Source()
	if windowed {
		src = src.Slice(start, end)
	}

	rend, err := p.rendererFor(formatID)
	if err != nil {
		p.fail(b, width, err)
		return
	}

	key := cache.Key{Hash: b.Buffer.ContentHash(), Width: width, FormatID: formatID}
	if !windowed {
		if rc, ok := p.cache.Get(key); ok {
			logger.Debug("cache hit", "id", b.ID, "format", formatID, "width", width)
			p.apply(b, rc, width, start, end)
			return
		}
	}

	if ar, ok := rend.(types.AsyncRenderer); ok {
		p.dispatch(b, ar, src, completion{
			id: b.ID, gen: b.gen, key: key, start: start, end: end, windowed: windowed,
		})
		return
	}

	rc, err := safeRender(formatID, func() (types.RenderedContent, error) {
		return rend.Render(src, p.rcfg)
	})
	if err != nil {
		p.fail(b, width, err)
		return
	}
	if !windowed {
		p.cache.Put(key, rc)
	}
	p.apply(b, rc, width, start, end)
}

// rendererFor looks up the renderer and checks its capabilities against
// what the host granted.
func (p *Pipeline) rendererFor(formatID string) (types.Renderer, error) {
	rend, ok := p.registry.Renderer(formatID)
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoRenderer, formatID)
	}
	for _, c := range rend.Capabilities() {
		if !p.rcfg.Allows(c) {
			return nil, &CapabilityError{FormatID: formatID, Capability: c}
		}
	}
	return rend, nil
}

func (p *Pipeline) apply(b *PrettifiedBlock, rc types.RenderedContent, width, start, end int) {
	if b.Buffer.IsVirtual() {
		b.Buffer.SetWindow(start, end-start, rc, width)
	} else {
		b.Buffer.SetRendered(rc, width)
	}
	b.RenderErr = nil
	b.failedWidth = 0
	b.pending = false
}

// fail leaves the block showing its source.
func (p *Pipeline) fail(b *PrettifiedBlock, width int, err error) {
	logger.Warn("render failed, showing source", "id", b.ID, "format", b.Detection.FormatID, "err", err)
	b.Buffer.ClearRendered()
	b.RenderErr = err
	b.failedWidth = width
	b.pending = false
}

// safeRender converts a renderer panic into a RenderFailed error so one bad
// renderer cannot take the pipeline down.
func safeRender(formatID string, fn func() (types.RenderedContent, error)) (rc types.RenderedContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 1<<14)
			n := runtime.Stack(buf, false)
			logger.Error("renderer panicked", "format", formatID, "panic", r, "stack", string(buf[:n]))
			err = types.Failed("renderer %s panicked: %v", formatID, r)
		}
	}()
	return fn()
}

// ─── Async handoff ──────────────────────────────────────────────────────────

func (p *Pipeline) dispatch(b *PrettifiedBlock, ar types.AsyncRenderer, src types.ContentBlock, c completion) {
	if err := p.ctx.Err(); err != nil {
		p.fail(b, c.key.Width, types.FailedWith("pipeline closed", err))
		return
	}
	cfg := p.rcfg
	ph, err := safeRender(c.key.FormatID, func() (types.RenderedContent, error) {
		return ar.Placeholder(src, cfg), nil
	})
	if err == nil {
		p.apply(b, ph, c.key.Width, c.start, c.end)
	}
	b.pending = true

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	logger.Debug("async render started", "id", b.ID, "format", c.key.FormatID, "timeout", timeout)
	p.wg.Add(1)
	go p.runAsync(c, ar, src, cfg, timeout)
}

func (p *Pipeline) runAsync(c completion, ar types.AsyncRenderer, src types.ContentBlock, cfg types.RendererConfig, timeout time.Duration) {
	defer p.wg.Done()
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	c.content, c.err = renderWithDeadline(ctx, timeout, c.key.FormatID, func(ctx context.Context) (types.RenderedContent, error) {
		return ar.RenderContext(ctx, src, cfg)
	})
	select {
	case p.completions <- c:
		p.signal()
	case <-p.ctx.Done():
	}
}

// renderWithDeadline enforces the timeout even when a renderer ignores its
// context. The abandoned call finishes on its own goroutine.
func renderWithDeadline(ctx context.Context, timeout time.Duration, formatID string,
	fn func(context.Context) (types.RenderedContent, error)) (types.RenderedContent, error) {
	type result struct {
		rc  types.RenderedContent
		err error
	}
	done := make(chan result, 1)
	go func() {
		rc, err := safeRender(formatID, func() (types.RenderedContent, error) { return fn(ctx) })
		done <- result{rc, err}
	}()
	select {
	case r := <-done:
		return r.rc, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return types.RenderedContent{}, types.ErrTimeout(timeout)
		}
		return types.RenderedContent{}, types.FailedWith("cancelled", ctx.Err())
	}
}

func (p *Pipeline) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Notify fires after a background render has finished. Hosts select on it
// and then call ApplyCompletions from their event loop. Safe from any
// goroutine.
func (p *Pipeline) Notify() <-chan struct{} { return p.notify }

// ApplyCompletions installs finished background renders and returns the
// ids of blocks that need a repaint. Results for blocks that were evicted,
// reset or re-rendered since are dropped.
func (p *Pipeline) ApplyCompletions() []uint64 {
	var ids []uint64
	for {
		select {
		case c := <-p.completions:
			if p.complete(c) {
				ids = append(ids, c.id)
			}
		default:
			return ids
		}
	}
}

func (p *Pipeline) complete(c completion) bool {
	b := p.Block(c.id)
	if b == nil {
		logger.Debug("dropping render for evicted block", "id", c.id)
		return false
	}
	if b.gen != c.gen || c.key.Width != p.rcfg.Width() {
		logger.Debug("dropping stale render", "id", c.id, "width", c.key.Width)
		return false
	}
	if c.err != nil {
		p.fail(b, c.key.Width, c.err)
		return true
	}
	if !c.windowed {
		p.cache.Put(c.key, c.content)
	}
	p.apply(b, c.content, c.key.Width, c.start, c.end)
	logger.Debug("async render applied", "id", b.ID, "lines", len(c.content.Lines))
	return true
}
