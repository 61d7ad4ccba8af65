// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tomltree renders TOML documents as trees. The whole document is
// validated with BurntSushi/toml; tables and keys are then walked line by
// line so every node keeps its source line, and each value is decoded on
// its own for its type.
package tomltree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "toml"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		return New(render.TreeOptionsFrom(opts, render.TOMLSyntax)), nil
	})
}

// Renderer renders TOML.
type Renderer struct {
	opts render.TreeOptions
}

// New returns a TOML renderer. opts.Syntax is forced to TOML.
func New(opts render.TreeOptions) *Renderer {
	opts.Syntax = render.TOMLSyntax
	return &Renderer{opts: opts}
}

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "TOML" }
func (r *Renderer) Badge() string                    { return "TOML" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	t, err := Parse(block.Lines)
	if err != nil {
		return types.RenderedContent{}, types.FailedWith("invalid TOML", err)
	}
	opts := r.opts
	opts.Theme = cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	render.RenderTree(&rc, t, opts)
	return rc, nil
}

// Parse validates lines as one TOML document and builds its tree.
func Parse(lines []string) (*render.Tree, error) {
	var doc map[string]interface{}
	if _, err := toml.Decode(strings.Join(lines, "\n"), &doc); err != nil {
		return nil, err
	}
	b := builder{t: &render.Tree{}}
	b.t.Root(render.Node{Kind: render.NodeObject})
	current := 0

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue
		case strings.HasPrefix(trimmed, "[["):
			path := splitKey(headerText(trimmed, "[[", "]]"))
			parent := b.walk(0, path[:len(path)-1], i)
			last := path[len(path)-1]
			arr, ok := b.child(parent, last)
			if !ok {
				arr = b.t.Add(parent, render.Node{Kind: render.NodeArray, Key: last, HasKey: true, Line: i, EndLine: i})
			}
			current = b.t.Add(arr, render.Node{Kind: render.NodeObject, Line: i, EndLine: i})
		case strings.HasPrefix(trimmed, "["):
			current = b.walk(0, splitKey(headerText(trimmed, "[", "]")), i)
		default:
			key, raw, ok := cutUnquoted(trimmed, '=')
			if !ok {
				return nil, fmt.Errorf("line %d: expected key = value", i+1)
			}
			end, value, err := completeValue(lines, i, strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			path := splitKey(key)
			parent := b.walk(current, path[:len(path)-1], i)
			b.value(parent, path[len(path)-1], true, value, i, end)
			i = end
		}
	}
	b.fixEnds(0)
	return b.t, nil
}

// headerText strips the brackets of a table header and any trailing
// comment.
func headerText(line, open, close string) string {
	inner := strings.TrimPrefix(line, open)
	if k := strings.Index(inner, close); k >= 0 {
		inner = inner[:k]
	}
	return strings.TrimSpace(inner)
}

// completeValue extends a value over continuation lines until it decodes,
// so multi-line strings and arrays are taken whole.
func completeValue(lines []string, start int, raw string) (int, interface{}, error) {
	var lastErr error
	for end := start; end < len(lines); end++ {
		if end > start {
			raw += "\n" + lines[end]
		}
		var m map[string]interface{}
		if _, err := toml.Decode("v = "+raw, &m); err != nil {
			lastErr = err
			continue
		}
		return end, m["v"], nil
	}
	return start, nil, lastErr
}

type builder struct {
	t *render.Tree
}

func (b *builder) child(parent int, key string) (int, bool) {
	for _, c := range b.t.Nodes[parent].Children {
		if n := b.t.Nodes[c]; n.HasKey && n.Key == key {
			return c, true
		}
	}
	return 0, false
}

// walk descends path from idx, creating implicit tables. A segment naming
// an array of tables continues in its last element.
func (b *builder) walk(idx int, path []string, line int) int {
	for _, seg := range path {
		c, ok := b.child(idx, seg)
		if !ok {
			c = b.t.Add(idx, render.Node{Kind: render.NodeObject, Key: seg, HasKey: true, Line: line, EndLine: line})
		}
		if n := b.t.Nodes[c]; n.Kind == render.NodeArray && len(n.Children) > 0 {
			c = n.Children[len(n.Children)-1]
		}
		idx = c
	}
	return idx
}

// value adds a decoded value. Every node of an inline value maps to the
// key's line.
func (b *builder) value(parent int, key string, hasKey bool, v interface{}, line, end int) {
	n := render.Node{Key: key, HasKey: hasKey, Line: line, EndLine: end}
	switch val := v.(type) {
	case map[string]interface{}:
		n.Kind = render.NodeObject
		idx := b.t.Add(parent, n)
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.value(idx, k, true, val[k], line, end)
		}
		return
	case []map[string]interface{}:
		n.Kind = render.NodeArray
		idx := b.t.Add(parent, n)
		for _, item := range val {
			b.value(idx, "", false, item, line, end)
		}
		return
	case []interface{}:
		n.Kind = render.NodeArray
		idx := b.t.Add(parent, n)
		for _, item := range val {
			b.value(idx, "", false, item, line, end)
		}
		return
	case string:
		q := strconv.Quote(val)
		n.Value, n.Scalar = q[1:len(q)-1], render.ScalarString
	case int64:
		n.Value, n.Scalar = strconv.FormatInt(val, 10), render.ScalarNumber
	case float64:
		n.Value, n.Scalar = strconv.FormatFloat(val, 'g', -1, 64), render.ScalarNumber
	case bool:
		n.Value, n.Scalar = strconv.FormatBool(val), render.ScalarBool
	case time.Time:
		n.Value, n.Scalar = formatTime(val), render.ScalarDate
	default:
		n.Value, n.Scalar = fmt.Sprint(val), render.ScalarString
	}
	n.Kind = render.NodeScalar
	b.t.Add(parent, n)
}

// formatTime prints local dates and times without the zone BurntSushi
// attaches to them.
func formatTime(t time.Time) string {
	switch t.Location() {
	case toml.LocalDate:
		return t.Format("2006-01-02")
	case toml.LocalTime:
		return t.Format("15:04:05.999999999")
	case toml.LocalDatetime:
		return t.Format("2006-01-02T15:04:05.999999999")
	}
	return t.Format(time.RFC3339Nano)
}

func (b *builder) fixEnds(idx int) int {
	n := &b.t.Nodes[idx]
	end := max(n.EndLine, n.Line)
	for _, c := range n.Children {
		end = max(end, b.fixEnds(c))
	}
	b.t.Nodes[idx].EndLine = end
	return end
}

// splitKey splits a dotted key, honouring quoted segments.
func splitKey(key string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	for i := 0; i < len(key); i++ {
		ch := key[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
				continue
			}
			cur.WriteByte(ch)
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '.':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(out, strings.TrimSpace(cur.String()))
}

// cutUnquoted splits s at the first sep outside quotes.
func cutUnquoted(s string, sep byte) (before, after string, found bool) {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == sep:
			return strings.TrimSpace(s[:i]), s[i+1:], true
		}
	}
	return s, "", false
}
