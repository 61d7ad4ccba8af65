// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package jsontree renders JSON documents as collapsible trees with
// indentation guides.
package jsontree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "json"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		o := render.TreeOptionsFrom(opts, render.JSONSyntax)
		o.ShowLength = opts.GetBool("show_array_length", true)
		return New(o), nil
	})
}

// Renderer renders JSON.
type Renderer struct {
	opts render.TreeOptions
}

// New returns a JSON renderer. opts.Syntax is forced to JSON.
func New(opts render.TreeOptions) *Renderer {
	opts.Syntax = render.JSONSyntax
	return &Renderer{opts: opts}
}

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "JSON" }
func (r *Renderer) Badge() string                    { return "{}" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

// Render parses every JSON value in the block and draws them in order.
// Text that does not parse is a RenderFailed error so the source stays
// visible.
func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	docs, err := Parse(block.FullText())
	if err != nil {
		return types.RenderedContent{}, types.FailedWith("invalid JSON", err)
	}
	opts := r.opts
	opts.Theme = cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	for _, t := range docs {
		render.RenderTree(&rc, t, opts)
	}
	return rc, nil
}

// Parse reads a stream of JSON values into trees whose nodes carry the
// source line of their tokens.
func Parse(text string) ([]*render.Tree, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	p := parser{dec: dec, lines: render.NewLineIndex(text)}

	var docs []*render.Tree
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t := &render.Tree{}
		if err := p.value(t, -1, tok, "", false); err != nil {
			return nil, err
		}
		docs = append(docs, t)
	}
	if len(docs) == 0 {
		return nil, errors.New("no JSON value")
	}
	return docs, nil
}

type parser struct {
	dec   *json.Decoder
	lines render.LineIndex
}

// line returns the source line of the token just read.
func (p *parser) line() int {
	return p.lines.Line(p.dec.InputOffset() - 1)
}

func (p *parser) value(t *render.Tree, parent int, tok json.Token, key string, hasKey bool) error {
	n := render.Node{Key: key, HasKey: hasKey, Line: p.line()}
	n.EndLine = n.Line

	add := func(n render.Node) int {
		if parent < 0 {
			return t.Root(n)
		}
		return t.Add(parent, n)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n.Kind = render.NodeObject
		case '[':
			n.Kind = render.NodeArray
		default:
			return fmt.Errorf("unexpected %q", v)
		}
		idx := add(n)
		for p.dec.More() {
			childKey, childHasKey := "", false
			if n.Kind == render.NodeObject {
				kt, err := p.dec.Token()
				if err != nil {
					return err
				}
				s, ok := kt.(string)
				if !ok {
					return fmt.Errorf("object key is %T", kt)
				}
				childKey, childHasKey = s, true
			}
			vt, err := p.dec.Token()
			if err != nil {
				return err
			}
			if err := p.value(t, idx, vt, childKey, childHasKey); err != nil {
				return err
			}
		}
		if _, err := p.dec.Token(); err != nil {
			return err
		}
		t.Nodes[idx].EndLine = p.line()
		return nil
	case string:
		n.Scalar = render.ScalarString
		q := strconv.Quote(v)
		n.Value = q[1 : len(q)-1]
	case json.Number:
		n.Scalar = render.ScalarNumber
		n.Value = v.String()
	case bool:
		n.Scalar = render.ScalarBool
		n.Value = strconv.FormatBool(v)
	case nil:
		n.Scalar = render.ScalarNull
		n.Value = "null"
	default:
		return fmt.Errorf("unexpected token %T", tok)
	}
	add(n)
	return nil
}
