// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"sort"
	"sync"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/types"
)

// Factory creates a renderer from its config table
// (prettifier.renderers.<format>). A nil section means defaults.
type Factory func(opts config.Section) (types.Renderer, error)

var (
	factoryMu sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a renderer factory to the global table. Renderer packages
// call it from init. Panics on duplicate registration.
func Register(formatID string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factories[formatID]; exists {
		panic("registry: duplicate renderer factory for " + formatID)
	}
	factories[formatID] = factory
}

// Lookup returns the factory for formatID.
func Lookup(formatID string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	f, ok := factories[formatID]
	return f, ok
}

// Factories lists the registered format ids in sorted order.
func Factories() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
