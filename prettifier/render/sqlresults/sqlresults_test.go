// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package sqlresults

import (
	"reflect"
	"strings"
	"testing"

	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

var mysqlGrid = []string{
	"+----+-------+",
	"| id | name  |",
	"+----+-------+",
	"|  1 | alice |",
	"|  2 | NULL  |",
	"+----+-------+",
	"2 rows in set (0.00 sec)",
}

var psqlGrid = []string{
	" id | name",
	"----+-------",
	"  1 | alice",
	"  2 | bob",
	"(2 rows)",
}

func TestParse_Dialects(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		dialect Dialect
		rows    []int
		footer  int
	}{
		{"mysql", mysqlGrid, DialectMySQL, []int{1, 3, 4}, 6},
		{"psql", psqlGrid, DialectPsql, []int{0, 2, 3}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Parse(tt.lines)
			if !ok {
				t.Fatal("expected parse")
			}
			if res.Dialect != tt.dialect {
				t.Errorf("dialect = %v", res.Dialect)
			}
			if !reflect.DeepEqual(res.Table.SourceRows, tt.rows) {
				t.Errorf("source rows = %v, want %v", res.Table.SourceRows, tt.rows)
			}
			if res.FooterLine != tt.footer {
				t.Errorf("footer line = %d, want %d", res.FooterLine, tt.footer)
			}
			if got := res.Table.HeaderCells(); !reflect.DeepEqual(got, []string{"id", "name"}) {
				t.Errorf("header = %q", got)
			}
		})
	}
	if _, ok := Parse([]string{"no grid here"}); ok {
		t.Error("plain text should not parse")
	}
}

func TestRender_MySQL(t *testing.T) {
	theme := types.DefaultTheme()
	rc, err := New(render.Box{}, true).Render(types.NewBlock(mysqlGrid, "mysql", 0), types.DefaultRendererConfig())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{
		"╭────┬───────╮",
		"│ id │ name  │",
		"├────┼───────┤",
		"│  1 │ alice │",
		"│  2 │ NULL  │",
		"╰────┴───────╯",
		"2 rows in set (0.00 sec)",
	}
	if rc.Text() != strings.Join(want, "\n") {
		t.Fatalf("got:\n%s\nwant:\n%s", rc.Text(), strings.Join(want, "\n"))
	}
	if m := rc.Mapping[6]; !m.HasSource || m.Source != 6 {
		t.Errorf("footer mapping = %+v", m)
	}

	var null *types.StyledSegment
	for i, seg := range rc.Lines[4].Segments {
		if strings.TrimSpace(seg.Text) == "NULL" {
			null = &rc.Lines[4].Segments[i]
		}
	}
	if null == nil || !null.Italic || null.FG != theme.DimColor() {
		t.Errorf("NULL cell not dimmed: %+v", null)
	}
}

func TestRender_NotSQL(t *testing.T) {
	_, err := New(render.Box{}, true).Render(types.NewBlock([]string{"hello"}, "", 0), types.DefaultRendererConfig())
	if !types.IsRenderKind(err, types.RenderFailed) {
		t.Fatalf("expected RenderFailed, got %v", err)
	}
}
