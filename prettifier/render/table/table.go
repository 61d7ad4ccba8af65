// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package table redraws column-shaped command output (pipe tables, ps,
// kubectl, ls -l and friends) with box borders.
package table

import (
	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/tabular"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "table"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		return New(render.BoxFrom(opts, "rounded")), nil
	})
}

// scorers in preference order; ties go to the earlier one.
var scorers = []tabular.Scorer{tabular.Markdown{}, tabular.Pipe{}, tabular.SpaceAligned{}}

type Renderer struct {
	box render.Box
}

func New(box render.Box) *Renderer { return &Renderer{box: box} }

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "Table" }
func (r *Renderer) Badge() string                    { return "TBL" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	t := Parse(block.Lines)
	if t == nil {
		return types.RenderedContent{}, types.Failed("no table shape found")
	}
	tabular.AlignNumeric(t)
	box := r.box
	box.Theme = cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	box.Render(&rc, t, cfg.Width())
	return rc, nil
}

// Parse scores lines against every table flavour and parses with the best
// one. It returns nil when nothing scores.
func Parse(lines []string) *tabular.Table {
	var (
		best      tabular.Scorer
		bestScore float64
	)
	for _, s := range scorers {
		if score := s.Score(lines); score > bestScore {
			best, bestScore = s, score
		}
	}
	if best == nil {
		return nil
	}
	t := best.Parse(lines)
	if t == nil || t.Columns() == 0 || len(t.Rows) == 0 {
		return nil
	}
	return t
}
