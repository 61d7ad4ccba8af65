// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package xmltree

import (
	"strings"
	"testing"

	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

var catalog = []string{
	`<?xml version="1.0"?>`,
	`<catalog>`,
	`  <book id="bk101">`,
	`    <author>Gambardella</author>`,
	`    <price>44.95</price>`,
	`  </book>`,
	`  <empty/>`,
	`</catalog>`,
}

func TestRender_ElementTree(t *testing.T) {
	rc, err := New(render.TreeOptions{}).Render(types.NewBlock(catalog, "", 0), types.DefaultRendererConfig())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{
		"catalog:",
		"│ book:",
		"│ │ @id: bk101",
		"│ │ author: Gambardella",
		"│ │ price: 44.95",
		"│ empty: (empty)",
	}
	if rc.Text() != strings.Join(want, "\n") {
		t.Fatalf("got:\n%s\nwant:\n%s", rc.Text(), strings.Join(want, "\n"))
	}
	wantMap := []int{1, 2, 2, 3, 4, 6}
	for i, src := range wantMap {
		if !rc.Mapping[i].HasSource || rc.Mapping[i].Source != src {
			t.Errorf("mapping %d = %+v, want source %d", i, rc.Mapping[i], src)
		}
	}
}

func TestParse_MixedContentAndTypes(t *testing.T) {
	tr, err := Parse(`<p lang="en">Hello <b>world</b> again</p>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := tr.Nodes[tr.Nodes[0].Children[0]]
	if p.Kind != render.NodeObject || len(p.Children) != 3 {
		t.Fatalf("p = %+v", p)
	}
	if text := tr.Nodes[p.Children[2]]; text.HasKey || text.Value != "Hello again" {
		t.Errorf("text child = %+v", text)
	}
	if b := tr.Nodes[p.Children[1]]; b.Kind != render.NodeScalar || b.Value != "world" {
		t.Errorf("b = %+v", b)
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]render.ScalarKind{
		"42":    render.ScalarNumber,
		"-1.5":  render.ScalarNumber,
		"true":  render.ScalarBool,
		"hello": render.ScalarString,
	}
	for in, want := range tests {
		if got := classify(in); got != want {
			t.Errorf("classify(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRender_Invalid(t *testing.T) {
	for _, in := range []string{"<a><b></a>", "just text", "<open>"} {
		_, err := New(render.TreeOptions{}).Render(types.NewBlock([]string{in}, "", 0), types.DefaultRendererConfig())
		if !types.IsRenderKind(err, types.RenderFailed) {
			t.Errorf("%q: expected RenderFailed, got %v", in, err)
		}
	}
}
