// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"sort"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/types"
)

// NodeKind distinguishes containers from leaves.
type NodeKind int

const (
	NodeScalar NodeKind = iota
	NodeObject
	NodeArray
)

// ScalarKind selects the colour of a leaf.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarNumber
	ScalarBool
	ScalarNull
	ScalarDate
)

// Node is one entry of a Tree. Children are arena indices, so parsers can
// build trees without pointer juggling and renderers can walk them without
// recursion limits mattering.
type Node struct {
	Kind   NodeKind
	Key    string
	HasKey bool
	Value  string
	Scalar ScalarKind
	// Line and EndLine are the source lines of the node's first and last
	// token. They are equal for scalars.
	Line     int
	EndLine  int
	Children []int
}

// Tree is an arena of nodes; index 0 is the root once Root is called.
type Tree struct {
	Nodes []Node
}

// Root creates the root node and returns its index.
func (t *Tree) Root(n Node) int {
	t.Nodes = append(t.Nodes[:0], n)
	return 0
}

// Add appends n as the last child of parent and returns its index.
func (t *Tree) Add(parent int, n Node) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, n)
	t.Nodes[parent].Children = append(t.Nodes[parent].Children, idx)
	return idx
}

// Syntax describes the punctuation of a tree format.
type Syntax struct {
	// Brackets wraps containers in {}/[] and separates members with commas
	// (JSON). Without brackets the layout is indentation only (YAML, TOML).
	Brackets     bool
	QuoteKeys    bool
	QuoteStrings bool
	KeySep       string
	// ItemMarker prefixes array elements in indentation layout, e.g. "- ".
	ItemMarker string
	ObjectNoun string
	ArrayNoun  string
}

// JSONSyntax is the bracketed layout.
var JSONSyntax = Syntax{Brackets: true, QuoteKeys: true, QuoteStrings: true, KeySep: ": ", ObjectNoun: "key", ArrayNoun: "item"}

// YAMLSyntax is the indentation layout with "- " items.
var YAMLSyntax = Syntax{KeySep: ": ", ItemMarker: "- ", ObjectNoun: "key", ArrayNoun: "item"}

// TOMLSyntax is the indentation layout with "key = value" pairs.
var TOMLSyntax = Syntax{QuoteStrings: true, KeySep: " = ", ItemMarker: "- ", ObjectNoun: "key", ArrayNoun: "item"}

// TreeOptions tunes the tree renderer.
type TreeOptions struct {
	Syntax Syntax
	Theme  types.ThemeColors
	// MaxDepth collapses containers at this depth or deeper into a one-line
	// summary. Zero or less disables collapsing.
	MaxDepth       int
	MaxString      int
	MaxArray       int
	ShowLength     bool
	SortKeys       bool
	ClickableURLs  bool
	HighlightNulls bool
}

// TreeOptionsFrom reads the tree keys of a renderer config table. The theme
// is filled in at render time.
func TreeOptionsFrom(opts config.Section, syntax Syntax) TreeOptions {
	return TreeOptions{
		Syntax:         syntax,
		MaxDepth:       opts.GetInt("max_depth_expanded", 3),
		MaxString:      opts.GetInt("max_string_length", 200),
		MaxArray:       opts.GetInt("max_array_display", 50),
		ShowLength:     opts.GetBool("show_array_length", false),
		SortKeys:       opts.GetBool("sort_keys", false),
		ClickableURLs:  opts.GetBool("clickable_urls", true),
		HighlightNulls: opts.GetBool("highlight_nulls", true),
	}
}

// RenderTree appends t to rc. Collapsed containers map their single line to
// the container's first source line, so several source lines share it.
func RenderTree(rc *types.RenderedContent, t *Tree, opts TreeOptions) {
	if len(t.Nodes) == 0 {
		return
	}
	w := treeWriter{rc: rc, t: t, o: opts}
	root := t.Nodes[0]
	if !opts.Syntax.Brackets && root.Kind != NodeScalar && !root.HasKey {
		// Indentation formats have no line for the document itself.
		for _, c := range w.children(0) {
			w.node(c, 0, false)
		}
		return
	}
	w.node(0, 0, false)
}

type treeWriter struct {
	rc *types.RenderedContent
	t  *Tree
	o  TreeOptions
}

func (w *treeWriter) children(idx int) []int {
	n := w.t.Nodes[idx]
	if !w.o.SortKeys || n.Kind != NodeObject {
		return n.Children
	}
	out := append([]int(nil), n.Children...)
	sort.SliceStable(out, func(i, j int) bool {
		return w.t.Nodes[out[i]].Key < w.t.Nodes[out[j]].Key
	})
	return out
}

func (w *treeWriter) prefix(depth int, n Node, item bool) []types.StyledSegment {
	segs := []types.StyledSegment{Seg(Guides(depth), w.o.Theme.DimColor())}
	if item && w.o.Syntax.ItemMarker != "" {
		segs = append(segs, Seg(w.o.Syntax.ItemMarker, w.o.Theme.DimColor()))
	}
	if n.HasKey {
		key := n.Key
		if w.o.Syntax.QuoteKeys {
			key = `"` + key + `"`
		}
		segs = append(segs, Seg(key, w.o.Theme.KeyColor()), types.Plain(w.o.Syntax.KeySep))
	}
	return segs
}

// node writes idx at depth. comma asks for a trailing separator.
func (w *treeWriter) node(idx, depth int, comma bool) {
	n := w.t.Nodes[idx]
	item := !n.HasKey && depth > 0
	segs := w.prefix(depth, n, item)

	if n.Kind == NodeScalar {
		segs = append(segs, w.scalar(n)...)
		w.push(segs, comma, n.Line)
		return
	}

	open, close, noun := "{", "}", w.o.Syntax.ObjectNoun
	if n.Kind == NodeArray {
		open, close, noun = "[", "]", w.o.Syntax.ArrayNoun
	}
	count := len(n.Children)
	dim := w.o.Theme.DimColor()

	if w.o.MaxDepth > 0 && depth >= w.o.MaxDepth {
		summary := ItalicSeg(" "+Summary(count, noun)+" ", dim)
		if w.o.Syntax.Brackets {
			segs = append(segs, types.Plain(open), summary, types.Plain(close))
		} else {
			segs = trimKeySep(segs, w.o.Syntax.KeySep)
			segs = append(segs, summary)
		}
		if comma {
			segs = append(segs, types.Plain(","))
		}
		// Hidden children resolve to the summary line.
		w.rc.PushSpan(types.Line(segs...), n.Line, max(n.EndLine, n.Line))
		return
	}

	if w.o.Syntax.Brackets {
		segs = append(segs, types.Plain(open))
	} else {
		segs = trimKeySep(segs, w.o.Syntax.KeySep)
		if !n.HasKey && !item {
			segs = append(segs, Seg(open+close, dim))
		}
	}
	if w.o.ShowLength {
		segs = append(segs, ItalicSeg("  // "+Summary(count, noun), dim))
	}
	w.push(segs, false, n.Line)

	kids := w.children(idx)
	shown := len(kids)
	if n.Kind == NodeArray && w.o.MaxArray > 0 && shown > w.o.MaxArray {
		shown = w.o.MaxArray
	}
	for i := 0; i < shown; i++ {
		w.node(kids[i], depth+1, w.o.Syntax.Brackets && i+1 < len(kids))
	}
	if rest := len(kids) - shown; rest > 0 {
		w.rc.Push(types.Line(
			Seg(Guides(depth+1), dim),
			ItalicSeg("... and "+Summary(rest, "more item"), dim),
		), -1)
	}

	if w.o.Syntax.Brackets {
		closeSegs := []types.StyledSegment{Seg(Guides(depth), dim), types.Plain(close)}
		w.push(closeSegs, comma, n.EndLine)
	}
}

func (w *treeWriter) push(segs []types.StyledSegment, comma bool, line int) {
	if comma {
		segs = append(segs, types.Plain(","))
	}
	w.rc.Push(types.Line(segs...), line)
}

// trimKeySep replaces a trailing key separator with a bare colon so that
// "key: " before a nested block reads "key:".
func trimKeySep(segs []types.StyledSegment, sep string) []types.StyledSegment {
	if len(segs) == 0 || segs[len(segs)-1].Text != sep {
		return segs
	}
	segs = segs[:len(segs)-1]
	return append(segs, types.Plain(":"))
}

func (w *treeWriter) scalar(n Node) []types.StyledSegment {
	th := w.o.Theme
	switch n.Scalar {
	case ScalarNumber:
		return []types.StyledSegment{Seg(n.Value, th.NumberColor())}
	case ScalarBool:
		return []types.StyledSegment{Seg(n.Value, th.BoolColor())}
	case ScalarDate:
		return []types.StyledSegment{Seg(n.Value, th.AccentColor())}
	case ScalarNull:
		if w.o.HighlightNulls {
			return []types.StyledSegment{ItalicSeg(n.Value, th.DimColor())}
		}
		return []types.StyledSegment{types.Plain(n.Value)}
	}

	text := n.Value
	if w.o.MaxString > 0 && len([]rune(text)) > w.o.MaxString {
		text = string([]rune(text)[:w.o.MaxString]) + "..."
	}
	if w.o.Syntax.QuoteStrings {
		text = `"` + text + `"`
	}
	if w.o.ClickableURLs {
		if url := URLPattern.FindString(n.Value); url != "" {
			return []types.StyledSegment{LinkSeg(text, url, th.StringColor())}
		}
	}
	return []types.StyledSegment{Seg(text, th.StringColor())}
}
