// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package csv renders comma and tab separated values as a bordered table.
package csv

import (
	"strings"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/tabular"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "csv"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		return New(render.BoxFrom(opts, "rounded"), opts.GetBool("has_header", true)), nil
	})
}

// Renderer draws delimited values with render.Box.
type Renderer struct {
	box       render.Box
	hasHeader bool
}

// New returns a CSV renderer. When hasHeader is false every row is data.
func New(box render.Box, hasHeader bool) *Renderer {
	return &Renderer{box: box, hasHeader: hasHeader}
}

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "CSV/TSV" }
func (r *Renderer) Badge() string                    { return "CSV" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	t := Parse(block.Lines)
	if t == nil {
		return types.RenderedContent{}, types.Failed("no delimited rows")
	}
	if !r.hasHeader {
		t.Header = -1
	}
	tabular.AlignNumeric(t)

	box := r.box
	box.Theme = cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	box.Render(&rc, t, cfg.Width())
	return rc, nil
}

// Parse splits lines on the detected delimiter. Blocks too ragged for
// tabular.Delimiter fall back to whichever of tab or comma is more frequent
// in the first five lines.
func Parse(lines []string) *tabular.Table {
	if t := (tabular.CSV{}).Parse(lines); t != nil {
		return t
	}
	return tabular.ParseDelimited(lines, guessDelimiter(lines))
}

func guessDelimiter(lines []string) byte {
	commas, tabs := 0, 0
	for _, ln := range lines[:min(len(lines), 5)] {
		commas += strings.Count(ln, ",")
		tabs += strings.Count(ln, "\t")
	}
	if tabs > commas {
		return '\t'
	}
	return ','
}
