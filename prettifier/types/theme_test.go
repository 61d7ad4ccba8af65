// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package types

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestShade(t *testing.T) {
	tests := []struct {
		in, want tcell.Color
	}{
		{tcell.NewRGBColor(90, 150, 33), tcell.NewRGBColor(30, 50, 11)},
		{tcell.ColorDefault, tcell.ColorDefault},
	}
	for _, tt := range tests {
		if got := Shade(tt.in); got != tt.want {
			t.Errorf("Shade(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestChangeBackgroundsFollowPalette(t *testing.T) {
	th := DefaultTheme()
	th.Palette[1] = tcell.NewRGBColor(210, 0, 0)
	th.Palette[2] = tcell.NewRGBColor(0, 180, 0)
	if got := th.RemovedBGColor(); got != tcell.NewRGBColor(70, 0, 0) {
		t.Errorf("removed = %v", got)
	}
	if got := th.AddedBGColor(); got != tcell.NewRGBColor(0, 60, 0) {
		t.Errorf("added = %v", got)
	}
}
