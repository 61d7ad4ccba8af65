// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/framegrace/prettify/prettifier/buffer"
	"github.com/framegrace/prettify/prettifier/types"
)

// PrettifiedBlock is a detected block with its dual view.
type PrettifiedBlock struct {
	ID        uint64
	Buffer    *buffer.DualViewBuffer
	Detection types.DetectionResult
	// RenderErr is the last render failure. The buffer shows source while
	// it is set.
	RenderErr error

	gen         uint64 // bumped on every render attempt; stale completions carry an older value
	failedWidth int
	pending     bool
}

// Content returns the captured source block.
func (b *PrettifiedBlock) Content() types.ContentBlock { return b.Buffer.Source() }

// Rows returns the block's absolute row range.
func (b *PrettifiedBlock) Rows() types.RowRange { return b.Buffer.Source().Rows }

// ViewMode returns the buffer's current view.
func (b *PrettifiedBlock) ViewMode() types.ViewMode { return b.Buffer.ViewMode() }

// HasRendered reports whether rendered output (or a placeholder) is stored.
func (b *PrettifiedBlock) HasRendered() bool {
	_, ok := b.Buffer.Rendered()
	return ok
}

// Pending reports whether a background render is in flight.
func (b *PrettifiedBlock) Pending() bool { return b.pending }

// Badge returns the renderer's badge for the stored render, or "".
func (b *PrettifiedBlock) Badge() string {
	if rc, ok := b.Buffer.Rendered(); ok {
		return rc.Badge
	}
	return ""
}

// stale reports whether the block should be rendered again at width. A
// failure is not retried at the width it failed at.
func (b *PrettifiedBlock) stale(width int) bool {
	if b.RenderErr != nil {
		return b.failedWidth != width
	}
	return b.Buffer.NeedsRender(width)
}

// CopyMode selects what CopyText returns.
type CopyMode int

const (
	CopyRendered CopyMode = iota
	CopySource
)

// ParseCopyMode maps the clipboard.default_copy setting. Unknown values copy
// rendered text.
func ParseCopyMode(s string) CopyMode {
	if strings.EqualFold(strings.TrimSpace(s), "source") {
		return CopySource
	}
	return CopyRendered
}

func (m CopyMode) String() string {
	if m == CopySource {
		return "source"
	}
	return "rendered"
}

// ErrNoRenderer is returned when a block's format has no registered renderer.
var ErrNoRenderer = errors.New("no renderer registered")

// CapabilityError reports a renderer skipped because the host has not granted
// a capability it needs.
type CapabilityError struct {
	FormatID   string
	Capability types.Capability
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("renderer %s needs %s, which the host has not granted", e.FormatID, e.Capability)
}
