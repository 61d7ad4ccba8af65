// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package types

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// ThemeColors is the palette handed to renderers. Renderers pick colours by
// role (Key, String, Error, ...) and never hard-code RGB values.
type ThemeColors struct {
	FG      tcell.Color
	BG      tcell.Color
	Palette [16]tcell.Color
}

// DefaultTheme returns the Catppuccin Mocha palette.
func DefaultTheme() ThemeColors {
	rgb := tcell.NewRGBColor
	return ThemeColors{
		FG: rgb(205, 214, 244),
		BG: rgb(30, 30, 46),
		Palette: [16]tcell.Color{
			rgb(69, 71, 90),    // surface0
			rgb(243, 139, 168), // red
			rgb(166, 227, 161), // green
			rgb(249, 226, 175), // yellow
			rgb(137, 180, 250), // blue
			rgb(203, 166, 247), // mauve
			rgb(148, 226, 213), // teal
			rgb(186, 194, 222), // subtext0
			rgb(108, 112, 134), // overlay0
			rgb(235, 160, 172), // maroon
			rgb(166, 227, 161),
			rgb(249, 226, 175),
			rgb(116, 199, 236), // sapphire
			rgb(245, 194, 231), // pink
			rgb(137, 220, 235), // sky
			rgb(205, 214, 244), // text
		},
	}
}

func (t ThemeColors) DimColor() tcell.Color     { return t.Palette[8] }
func (t ThemeColors) StringColor() tcell.Color  { return t.Palette[2] }
func (t ThemeColors) KeyColor() tcell.Color     { return t.Palette[6] }
func (t ThemeColors) ErrorColor() tcell.Color   { return t.Palette[1] }
func (t ThemeColors) NumberColor() tcell.Color  { return t.Palette[11] }
func (t ThemeColors) CommentColor() tcell.Color { return t.Palette[8] }
func (t ThemeColors) AccentColor() tcell.Color  { return t.Palette[14] }
func (t ThemeColors) WarningColor() tcell.Color { return t.Palette[3] }
func (t ThemeColors) BoolColor() tcell.Color    { return t.Palette[5] }
func (t ThemeColors) LinkColor() tcell.Color    { return t.Palette[4] }

// AddedBGColor and RemovedBGColor tint the background of changed text.
func (t ThemeColors) AddedBGColor() tcell.Color   { return Shade(t.StringColor()) }
func (t ThemeColors) RemovedBGColor() tcell.Color { return Shade(t.ErrorColor()) }

// Shade darkens c to a third of its intensity for use as a background.
// Colours without an RGB value yield the default colour.
func Shade(c tcell.Color) tcell.Color {
	if !c.Valid() {
		return tcell.ColorDefault
	}
	r, g, b := c.RGB()
	if r < 0 {
		return tcell.ColorDefault
	}
	return tcell.NewRGBColor(r/3, g/3, b/3)
}

// RendererConfig is supplied by the host at render time.
type RendererConfig struct {
	TerminalWidth int
	Theme         ThemeColors
	// CellWidthPx and CellHeightPx are zero when the host has no pixel metrics.
	CellWidthPx  float64
	CellHeightPx float64
	// AllowedCommands lists executables external renderers may run.
	AllowedCommands []string
	// Granted lists capabilities the host allows beyond text styling.
	Granted []Capability
	// Timeout bounds externally-backed renders.
	Timeout time.Duration
}

// DefaultRendererConfig returns an 80-column config with the default theme.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		TerminalWidth: 80,
		Theme:         DefaultTheme(),
		Timeout:       10 * time.Second,
	}
}

// Width returns the terminal width, never less than 1.
func (c RendererConfig) Width() int {
	if c.TerminalWidth < 1 {
		return 80
	}
	return c.TerminalWidth
}

// Allows reports whether the host granted the capability.
func (c RendererConfig) Allows(want Capability) bool {
	if want == CapTextStyling {
		return true
	}
	return HasCapability(c.Granted, want)
}

// CommandAllowed reports whether an external command may be executed. An
// empty allow list permits any command.
func (c RendererConfig) CommandAllowed(name string) bool {
	if len(c.AllowedCommands) == 0 {
		return true
	}
	for _, allowed := range c.AllowedCommands {
		if allowed == name {
			return true
		}
	}
	return false
}
