// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package cache memoises renders by content hash, width and format. It is a
// pure optimisation: a hit returns exactly what a fresh render of the same
// input would. The cache is not safe for concurrent use; the pipeline owns it.
package cache

import (
	"container/list"

	"github.com/framegrace/prettify/prettifier/types"
)

// Key identifies one render.
type Key struct {
	Hash     uint64
	Width    int
	FormatID string
}

// Stats are cumulative since the last Clear.
type Stats struct {
	Entries    int
	MaxEntries int
	Hits       uint64
	Misses     uint64
	Evictions  uint64
}

// HitRate returns hits / lookups, 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	key     Key
	content types.RenderedContent
}

// RenderCache is a fixed-size LRU.
type RenderCache struct {
	max     int
	order   *list.List // front = most recently used
	entries map[Key]*list.Element
	stats   Stats
}

// New returns a cache holding up to max entries. max <= 0 disables caching:
// Put is a no-op and every Get misses.
func New(max int) *RenderCache {
	return &RenderCache{
		max:     max,
		order:   list.New(),
		entries: make(map[Key]*list.Element),
	}
}

// Get returns the cached render for key and marks it most recently used.
func (c *RenderCache) Get(key Key) (types.RenderedContent, bool) {
	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return types.RenderedContent{}, false
	}
	c.stats.Hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry).content, true
}

// Put stores content, evicting the least recently used entry when full.
func (c *RenderCache) Put(key Key, content types.RenderedContent) {
	if c.max <= 0 {
		return
	}
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).content = content
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.max {
		c.evictOldest()
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, content: content})
}

func (c *RenderCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
	c.stats.Evictions++
}

// Invalidate drops every entry for a content hash, at any width or format.
func (c *RenderCache) Invalidate(hash uint64) int {
	n := 0
	for key, el := range c.entries {
		if key.Hash == hash {
			c.order.Remove(el)
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Clear empties the cache and resets the statistics.
func (c *RenderCache) Clear() {
	c.order.Init()
	c.entries = make(map[Key]*list.Element)
	c.stats = Stats{}
}

// Len returns the number of cached renders.
func (c *RenderCache) Len() int { return c.order.Len() }

// Stats returns a snapshot of the counters.
func (c *RenderCache) Stats() Stats {
	s := c.stats
	s.Entries = c.order.Len()
	s.MaxEntries = c.max
	return s
}
