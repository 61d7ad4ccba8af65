// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/logging/logging.go
// Summary: Shared leveled logger with per-component prefixes.

package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	clog "github.com/charmbracelet/log"
)

var (
	mu   sync.RWMutex
	root = clog.NewWithOptions(os.Stderr, clog.Options{
		ReportTimestamp: true,
		Level:           clog.WarnLevel,
	})
	children = make(map[string]*clog.Logger)
)

// Logger returns the root logger.
func Logger() *clog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// For returns a logger tagged with the given component name, e.g. "PIPELINE".
func For(component string) *clog.Logger {
	mu.RLock()
	l, ok := children[component]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := children[component]; ok {
		return l
	}
	l = root.WithPrefix(component)
	children[component] = l
	return l
}

// SetLevel parses a level name ("debug", "info", "warn", "error") and applies
// it to every logger. Unknown names leave the level unchanged.
func SetLevel(name string) {
	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		root.Warn("unknown log level", "level", name)
		return
	}
	mu.Lock()
	defer mu.Unlock()
	root.SetLevel(lvl)
	for _, l := range children {
		l.SetLevel(lvl)
	}
}

// SetOutput redirects all loggers. Used by tests and by the interactive viewer,
// which owns the terminal while running.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root.SetOutput(w)
	for _, l := range children {
		l.SetOutput(w)
	}
}
