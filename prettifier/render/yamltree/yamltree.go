// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package yamltree renders YAML documents as collapsible trees. Parsing is
// done with yaml.v3 nodes so every entry keeps its source line.
package yamltree

import (
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "yaml"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		return New(render.TreeOptionsFrom(opts, render.YAMLSyntax)), nil
	})
}

// Renderer renders YAML.
type Renderer struct {
	opts render.TreeOptions
}

// New returns a YAML renderer. opts.Syntax is forced to YAML.
func New(opts render.TreeOptions) *Renderer {
	opts.Syntax = render.YAMLSyntax
	return &Renderer{opts: opts}
}

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "YAML" }
func (r *Renderer) Badge() string                    { return "YAML" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	docs, err := Parse(block.FullText())
	if err != nil {
		return types.RenderedContent{}, types.FailedWith("invalid YAML", err)
	}
	opts := r.opts
	opts.Theme = cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	for i, t := range docs {
		if i > 0 {
			rc.Push(types.Line(render.Seg("---", cfg.Theme.DimColor())), -1)
		}
		render.RenderTree(&rc, t, opts)
	}
	return rc, nil
}

// Parse decodes every document in text. Empty documents are skipped.
func Parse(text string) ([]*render.Tree, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var docs []*render.Tree
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		root := &doc
		if root.Kind == yaml.DocumentNode {
			if len(root.Content) == 0 {
				continue
			}
			root = root.Content[0]
		}
		t := &render.Tree{}
		convert(t, -1, root, nil)
		docs = append(docs, t)
	}
	if len(docs) == 0 {
		return nil, errors.New("no YAML document")
	}
	return docs, nil
}

// convert adds yn under parent. key is the mapping key node, if any; a keyed
// entry is placed on the key's line.
func convert(t *render.Tree, parent int, yn *yaml.Node, key *yaml.Node) int {
	n := render.Node{Line: yn.Line - 1}
	if key != nil {
		n.Key, n.HasKey, n.Line = key.Value, true, key.Line-1
	}
	n.EndLine = lastLine(yn) - 1

	switch yn.Kind {
	case yaml.MappingNode:
		n.Kind = render.NodeObject
	case yaml.SequenceNode:
		n.Kind = render.NodeArray
	case yaml.AliasNode:
		n.Kind = render.NodeScalar
		n.Value = "*" + yn.Value
	default:
		n.Kind = render.NodeScalar
		n.Value, n.Scalar = scalar(yn)
	}

	var idx int
	if parent < 0 {
		idx = t.Root(n)
	} else {
		idx = t.Add(parent, n)
	}
	switch yn.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(yn.Content); i += 2 {
			convert(t, idx, yn.Content[i+1], yn.Content[i])
		}
	case yaml.SequenceNode:
		for _, c := range yn.Content {
			convert(t, idx, c, nil)
		}
	}
	return idx
}

func scalar(yn *yaml.Node) (string, render.ScalarKind) {
	value := strings.ReplaceAll(yn.Value, "\n", `\n`)
	switch yn.ShortTag() {
	case "!!int", "!!float":
		return value, render.ScalarNumber
	case "!!bool":
		return value, render.ScalarBool
	case "!!null":
		if value == "" {
			value = "null"
		}
		return value, render.ScalarNull
	case "!!timestamp":
		return value, render.ScalarDate
	}
	if yn.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return `"` + value + `"`, render.ScalarString
	}
	return value, render.ScalarString
}

// lastLine is the largest 1-based line in the subtree.
func lastLine(yn *yaml.Node) int {
	end := yn.Line
	for _, c := range yn.Content {
		end = max(end, lastLine(c))
	}
	return end
}
