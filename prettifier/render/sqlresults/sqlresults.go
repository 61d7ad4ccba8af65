// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sqlresults redraws psql, mysql and sqlite3 result grids.
package sqlresults

import (
	"regexp"
	"strings"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/tabular"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "sql_results"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		box := render.BoxFrom(opts, "unicode")
		return New(box, opts.GetBool("highlight_nulls", true)), nil
	})
}

var (
	reMySQLBorder   = regexp.MustCompile(`^\+[-+]+\+$`)
	rePsqlSeparator = regexp.MustCompile(`^[-+]+$`)
	reRowCount      = regexp.MustCompile(`^\(?\d+ rows?\)?`)
)

// Dialect is the client output style a grid was parsed from.
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectMySQL
	DialectPsql
)

// Result is a parsed result set. Footer is the "(N rows)" line, with
// FooterLine its source index or -1.
type Result struct {
	Table      *tabular.Table
	Dialect    Dialect
	Footer     string
	FooterLine int
}

type Renderer struct {
	box            render.Box
	highlightNulls bool
}

func New(box render.Box, highlightNulls bool) *Renderer {
	return &Renderer{box: box, highlightNulls: highlightNulls}
}

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "SQL Results" }
func (r *Renderer) Badge() string                    { return "SQL" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	res, ok := Parse(block.Lines)
	if !ok {
		return types.RenderedContent{}, types.Failed("could not parse SQL result set")
	}
	tabular.AlignNumeric(res.Table)

	box := r.box
	box.Theme = cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	box.Render(&rc, res.Table, cfg.Width())
	if r.highlightNulls {
		dimNulls(rc.Lines, cfg.Theme)
	}
	if res.Footer != "" {
		rc.Push(types.Line(render.ItalicSeg(res.Footer, cfg.Theme.DimColor())), res.FooterLine)
	}
	return rc, nil
}

// Parse recognises mysql's +---+ framed grids and psql's ---+--- separated
// grids. The header is the first pipe row.
func Parse(lines []string) (Result, bool) {
	res := Result{Dialect: dialectOf(lines), FooterLine: -1}
	if res.Dialect == DialectUnknown {
		return res, false
	}
	t := &tabular.Table{Header: -1, Kind: tabular.KindPipe}
	pastHeader := false
	cols := 0
	for i, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		switch {
		case trimmed == "":
			continue
		case res.Dialect == DialectMySQL && reMySQLBorder.MatchString(trimmed),
			res.Dialect == DialectPsql && rePsqlSeparator.MatchString(trimmed):
			if t.Header >= 0 {
				pastHeader = true
			}
			continue
		case reRowCount.MatchString(trimmed), strings.Contains(trimmed, " rows in set"), strings.Contains(trimmed, " row in set"):
			res.Footer, res.FooterLine = trimmed, i
			continue
		}
		if res.Dialect == DialectMySQL && !(strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")) {
			continue
		}
		if !strings.Contains(trimmed, "|") {
			continue
		}
		cells := splitCells(trimmed)
		switch {
		case t.Header < 0:
			t.Header = len(t.Rows)
		case !pastHeader:
			// Rows between the header and its separator are extra header
			// lines; psql wraps wide headers this way.
			continue
		}
		cols = max(cols, len(cells))
		t.Rows = append(t.Rows, cells)
		t.SourceRows = append(t.SourceRows, i)
	}
	if t.Header < 0 || cols == 0 {
		return res, false
	}
	for i := range t.Rows {
		t.Rows[i] = tabular.PadRow(t.Rows[i], cols)
	}
	t.Align = make([]tabular.Align, cols)
	res.Table = t
	return res, true
}

func dialectOf(lines []string) Dialect {
	for _, ln := range lines {
		if reMySQLBorder.MatchString(strings.TrimSpace(ln)) {
			return DialectMySQL
		}
	}
	for _, ln := range lines {
		if rePsqlSeparator.MatchString(strings.TrimSpace(ln)) {
			return DialectPsql
		}
	}
	return DialectUnknown
}

func splitCells(row string) []string {
	parts := strings.Split(strings.Trim(row, "|"), "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// dimNulls restyles NULL cells in place.
func dimNulls(lines []types.StyledLine, theme types.ThemeColors) {
	for _, ln := range lines {
		for i := range ln.Segments {
			if strings.TrimSpace(ln.Segments[i].Text) == "NULL" {
				ln.Segments[i].FG = theme.DimColor()
				ln.Segments[i].Italic = true
			}
		}
	}
}
