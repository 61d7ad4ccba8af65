// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package theming resolves the renderer palette from configuration.
package theming

import (
	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/types"
)

// Section holds palette overrides:
//
//	"prettifier.theme": {"fg": "#cdd6f4", "bg": "#1e1e2e", "palette": ["#45475a", ...]}
//
// Palette entries may be left empty to keep the default slot.
const Section = "prettifier.theme"

// FromConfig returns the default theme with any overrides from cfg applied.
func FromConfig(cfg config.Config) types.ThemeColors {
	return WithOverrides(types.DefaultTheme(), cfg.Section(Section))
}

// WithOverrides applies the colours in s to base. Unknown colour names are
// logged and skipped.
func WithOverrides(base types.ThemeColors, s config.Section) types.ThemeColors {
	if len(s) == 0 {
		return base
	}
	out := base
	if c, ok := parseColor(s.GetString("fg", "")); ok {
		out.FG = c
	}
	if c, ok := parseColor(s.GetString("bg", "")); ok {
		out.BG = c
	}
	for i, name := range s.GetStrings("palette") {
		if i >= len(out.Palette) {
			logging.For("THEME").Warn("palette has more than 16 entries", "extra", name)
			break
		}
		if c, ok := parseColor(name); ok {
			out.Palette[i] = c
		}
	}
	return out
}

func parseColor(name string) (tcell.Color, bool) {
	if name == "" {
		return tcell.ColorDefault, false
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		logging.For("THEME").Warn("unknown colour", "name", name)
		return c, false
	}
	return c, true
}
