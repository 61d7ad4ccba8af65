// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package xmltree renders XML documents as element trees: attributes become
// "@name" leaves and text-only elements collapse into a single line.
package xmltree

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "xml"

// Syntax is the indentation layout used for elements.
var Syntax = render.Syntax{KeySep: ": ", ObjectNoun: "node", ArrayNoun: "node"}

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		return New(render.TreeOptionsFrom(opts, Syntax)), nil
	})
}

// Renderer renders XML.
type Renderer struct {
	opts render.TreeOptions
}

// New returns an XML renderer.
func New(opts render.TreeOptions) *Renderer {
	opts.Syntax = Syntax
	return &Renderer{opts: opts}
}

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "XML" }
func (r *Renderer) Badge() string                    { return "<>" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	t, err := Parse(block.FullText())
	if err != nil {
		return types.RenderedContent{}, types.FailedWith("invalid XML", err)
	}
	opts := r.opts
	opts.Theme = cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	render.RenderTree(&rc, t, opts)
	return rc, nil
}

type frame struct {
	idx      int
	text     []string
	elements int
	attrs    int
}

// Parse builds the element tree. The tree root is an unnamed document node
// holding the top-level elements.
func Parse(text string) (*render.Tree, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	t := &render.Tree{}
	t.Root(render.Node{Kind: render.NodeObject})
	stack := []*frame{{idx: 0}}

	for {
		line, _ := dec.InputPos()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		switch el := tok.(type) {
		case xml.StartElement:
			idx := t.Add(top.idx, render.Node{Kind: render.NodeObject, Key: qualified(el.Name), HasKey: true, Line: line - 1})
			top.elements++
			f := &frame{idx: idx}
			for _, a := range el.Attr {
				t.Add(idx, render.Node{Kind: render.NodeScalar, Key: "@" + qualified(a.Name), HasKey: true,
					Value: a.Value, Scalar: classify(a.Value), Line: line - 1, EndLine: line - 1})
				f.attrs++
			}
			stack = append(stack, f)
		case xml.CharData:
			if s := strings.Join(strings.Fields(string(el)), " "); s != "" {
				top.text = append(top.text, s)
			}
		case xml.EndElement:
			end, _ := dec.InputPos()
			finish(t, top, end-1)
			stack = stack[:len(stack)-1]
		}
	}
	if len(t.Nodes[0].Children) == 0 {
		return nil, errors.New("no root element")
	}
	t.Nodes[0].EndLine = t.Nodes[len(t.Nodes)-1].EndLine
	return t, nil
}

// finish closes an element: text-only elements become leaves, otherwise
// text is kept as an unnamed child.
func finish(t *render.Tree, f *frame, endLine int) {
	n := &t.Nodes[f.idx]
	n.EndLine = endLine
	text := strings.Join(f.text, " ")
	if f.elements == 0 && f.attrs == 0 {
		n.Kind = render.NodeScalar
		if text == "" {
			n.Value, n.Scalar = "(empty)", render.ScalarNull
			return
		}
		n.Value, n.Scalar = text, classify(text)
		return
	}
	if text != "" {
		t.Add(f.idx, render.Node{Kind: render.NodeScalar, Value: text, Scalar: render.ScalarString, Line: endLine, EndLine: endLine})
	}
}

func qualified(n xml.Name) string {
	if n.Space == "" || strings.Contains(n.Space, "/") {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func classify(v string) render.ScalarKind {
	switch v {
	case "true", "false":
		return render.ScalarBool
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return render.ScalarNumber
	}
	return render.ScalarString
}
