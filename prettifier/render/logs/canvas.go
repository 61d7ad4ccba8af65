// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package logs

import (
	"regexp"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/prettify/prettifier/types"
)

// canvas holds one style per byte of a line. Regex matches paint byte
// ranges; line() coalesces equal neighbours into segments. Ranges always
// come from regexp indices, so runs never split a rune.
type canvas struct {
	text   string
	styles []types.StyledSegment
}

func newCanvas(text string) *canvas {
	c := &canvas{text: text, styles: make([]types.StyledSegment, len(text))}
	for i := range c.styles {
		c.styles[i] = types.Plain("")
	}
	return c
}

// paint colours [start,end) where no colour was applied yet, so earlier
// and more specific matches win.
func (c *canvas) paint(start, end int, fg tcell.Color, bold bool) {
	for i := max(start, 0); i < end && i < len(c.styles); i++ {
		if c.styles[i].FG == tcell.ColorDefault {
			c.styles[i].FG = fg
			c.styles[i].Bold = c.styles[i].Bold || bold
		}
	}
}

// paintAll applies fg to every match of re.
func (c *canvas) paintAll(re *regexp.Regexp, fg tcell.Color) {
	for _, loc := range re.FindAllStringIndex(c.text, -1) {
		c.paint(loc[0], loc[1], fg, false)
	}
}

func (c *canvas) background(start, end int, bg tcell.Color) {
	for i := max(start, 0); i < end && i < len(c.styles); i++ {
		c.styles[i].BG = bg
	}
}

func (c *canvas) link(start, end int, url string, fg tcell.Color) {
	for i := max(start, 0); i < end && i < len(c.styles); i++ {
		c.styles[i].FG = fg
		c.styles[i].Underline = true
		c.styles[i].LinkURL = url
	}
}

func (c *canvas) line() types.StyledLine {
	if c.text == "" {
		return types.PlainLine("")
	}
	var segs []types.StyledSegment
	start := 0
	for i := 1; i <= len(c.text); i++ {
		if i < len(c.text) && c.styles[i] == c.styles[start] {
			continue
		}
		s := c.styles[start]
		s.Text = c.text[start:i]
		segs = append(segs, s)
		start = i
	}
	return types.Line(segs...)
}
