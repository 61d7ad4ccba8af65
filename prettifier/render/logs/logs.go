// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logs colours application log output: timestamps, levels,
// key=value pairs and trailing JSON payloads. Stack frames that follow an
// error line are collapsed.
package logs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "log"

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		return New(Options{
			ExpandJSON:       opts.GetBool("expand_json", true),
			MaxVisibleFrames: opts.GetInt("max_visible_frames", 3),
		}), nil
	})
}

const levelAlt = `TRACE|DEBUG|INFO|WARN(?:ING)?|ERROR|ERR|FATAL|CRIT(?:ICAL)?`

var (
	reTimestampLevel = regexp.MustCompile(`^(\d{4}[-/]\d{2}[-/]\d{2}[T ]\d{2}:\d{2}:\d{2}\S*)\s+\[?(` + levelAlt + `)\]?(?:\s+|$)`)
	reSyslog         = regexp.MustCompile(`^((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d+\s+\d{2}:\d{2}:\d{2})\s+`)
	reLevelPrefix    = regexp.MustCompile(`^\s*\[?(` + levelAlt + `)\]?(?:\s+|:\s*|$)`)
	reLevelWord      = regexp.MustCompile(`\b(` + levelAlt + `)\b`)
	reLogfmtLevel    = regexp.MustCompile(`\b(?:level|lvl|severity)=("?)(\w+)`)
	reISOTime        = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?\b`)
	reKV             = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_.]*)=("[^"]*"|[^\s]+)`)
)

// Options configures the renderer.
type Options struct {
	// ExpandJSON pretty-prints a JSON object or array that ends a message.
	ExpandJSON bool
	// MaxVisibleFrames is how many stack frames stay visible after an error
	// line.
	MaxVisibleFrames int
}

type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer { return &Renderer{opts: opts} }

func (r *Renderer) FormatID() string                 { return FormatID }
func (r *Renderer) DisplayName() string              { return "Log Output" }
func (r *Renderer) Badge() string                    { return "LOG" }
func (r *Renderer) Capabilities() []types.Capability { return []types.Capability{types.CapTextStyling} }

// Entry is what the parser found on one log line. Ranges are byte offsets
// into the line; an empty range means absent.
type Entry struct {
	Level     Level
	Timestamp [2]int
	LevelSpan [2]int
	// Message is the offset where the message text begins.
	Message int
}

// ParseLine locates the timestamp, level and message of a log line.
func ParseLine(line string) Entry {
	if m := reTimestampLevel.FindStringSubmatchIndex(line); m != nil {
		return Entry{Level: ParseLevel(line[m[4]:m[5]]), Timestamp: [2]int{m[2], m[3]}, LevelSpan: [2]int{m[4], m[5]}, Message: m[1]}
	}
	if m := reSyslog.FindStringSubmatchIndex(line); m != nil {
		e := Entry{Timestamp: [2]int{m[2], m[3]}, Message: m[1]}
		if lm := reLevelWord.FindStringIndex(line[m[1]:]); lm != nil {
			e.Level = ParseLevel(line[m[1]+lm[0] : m[1]+lm[1]])
			e.LevelSpan = [2]int{m[1] + lm[0], m[1] + lm[1]}
		}
		return e
	}
	if m := reLevelPrefix.FindStringSubmatchIndex(line); m != nil {
		return Entry{Level: ParseLevel(line[m[2]:m[3]]), LevelSpan: [2]int{m[2], m[3]}, Message: m[1]}
	}
	if m := reLogfmtLevel.FindStringSubmatchIndex(line); m != nil {
		return Entry{Level: ParseLevel(line[m[4]:m[5]]), LevelSpan: [2]int{m[4], m[5]}}
	}
	if lvl, ok := jsonLevel(line); ok {
		return Entry{Level: lvl}
	}
	return Entry{}
}

// jsonLevel reads the level field of a JSON structured log line.
func jsonLevel(line string) (Level, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return LevelNone, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return LevelNone, false
	}
	for _, k := range []string{"level", "lvl", "severity", "levelname"} {
		if s, ok := obj[k].(string); ok {
			return ParseLevel(s), true
		}
	}
	return LevelNone, true
}

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	theme := cfg.Theme
	rc := types.RenderedContent{Badge: r.Badge()}
	for i := 0; i < len(block.Lines); i++ {
		line := block.Lines[i]
		e := ParseLine(line)

		payload := -1
		if r.opts.ExpandJSON {
			payload = trailingJSON(line, e.Message)
		}
		head := line
		if payload > 0 {
			head = strings.TrimRight(line[:payload], " ")
		}
		rc.Push(paintLine(head, e, theme), i)
		if payload > 0 {
			for _, pl := range expandJSON(line[payload:], theme) {
				rc.Push(pl, i)
			}
		}

		if !e.Level.Severe() {
			continue
		}
		end := i + 1
		for end < len(block.Lines) && isStackFrame(block.Lines[end]) {
			end++
		}
		frames := end - (i + 1)
		if frames == 0 {
			continue
		}
		visible := min(frames, max(r.opts.MaxVisibleFrames, 0))
		for j := i + 1; j < i+1+visible; j++ {
			rc.Push(types.Line(render.Seg(block.Lines[j], theme.DimColor())), j)
		}
		if hidden := frames - visible; hidden > 0 {
			msg := fmt.Sprintf("    ... %d more stack frames", hidden)
			rc.Push(types.Line(render.ItalicSeg(msg, theme.DimColor())), -1)
		}
		i = end - 1
	}
	return rc, nil
}

// paintLine colours one log line. Order matters: the first paint of a byte
// wins.
func paintLine(line string, e Entry, theme types.ThemeColors) types.StyledLine {
	c := newCanvas(line)
	for _, loc := range render.URLPattern.FindAllStringIndex(line, -1) {
		c.link(loc[0], loc[1], line[loc[0]:loc[1]], theme.LinkColor())
	}
	if e.Timestamp[1] > e.Timestamp[0] {
		c.paint(e.Timestamp[0], e.Timestamp[1], theme.DimColor(), false)
	}
	if e.LevelSpan[1] > e.LevelSpan[0] {
		fg, bg, bold := e.Level.Style(theme)
		c.paint(e.LevelSpan[0], e.LevelSpan[1], fg, bold)
		if e.Level == LevelFatal {
			c.background(e.LevelSpan[0], e.LevelSpan[1], bg)
		}
	}
	c.paintAll(reISOTime, theme.DimColor())
	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		paintJSON(c, theme)
	} else {
		for _, m := range reKV.FindAllStringSubmatchIndex(line, -1) {
			c.paint(m[2], m[3], theme.KeyColor(), false)
			c.paint(m[4], m[5], theme.NumberColor(), false)
		}
	}
	if e.Level.Severe() {
		fg, _, _ := e.Level.Style(theme)
		c.paint(e.Message, len(line), fg, true)
	}
	return c.line()
}

// trailingJSON returns the offset of a JSON object or array that starts
// after the message offset and runs to the end of the line, or -1.
func trailingJSON(line string, from int) int {
	trimmed := strings.TrimRight(line, " \t")
	if !strings.HasSuffix(trimmed, "}") && !strings.HasSuffix(trimmed, "]") {
		return -1
	}
	for i := from; i < len(trimmed); i++ {
		if trimmed[i] != '{' && trimmed[i] != '[' {
			continue
		}
		if i == 0 {
			// A whole-line JSON record is coloured in place.
			return -1
		}
		if json.Valid([]byte(trimmed[i:])) {
			return i
		}
	}
	return -1
}

func expandJSON(payload string, theme types.ThemeColors) []types.StyledLine {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(payload)), "    ", "  "); err != nil {
		return []types.StyledLine{types.PlainLine("    " + payload)}
	}
	text := "    " + buf.String()
	var out []types.StyledLine
	for _, ln := range strings.Split(text, "\n") {
		c := newCanvas(ln)
		paintJSON(c, theme)
		out = append(out, c.line())
	}
	return out
}

// paintJSON colours JSON tokens on c: keys, strings, numbers, booleans and
// null.
func paintJSON(c *canvas, theme types.ThemeColors) {
	s := c.text
	for i := 0; i < len(s); {
		switch ch := s[i]; {
		case ch == '"':
			end := i + 1
			for end < len(s) && s[end] != '"' {
				if s[end] == '\\' {
					end++
				}
				end++
			}
			end = min(end+1, len(s))
			fg := theme.StringColor()
			if rest := strings.TrimLeft(s[end:], " "); strings.HasPrefix(rest, ":") {
				fg = theme.KeyColor()
			}
			c.paint(i, end, fg, false)
			i = end
		case ch == '-' || (ch >= '0' && ch <= '9'):
			end := i + 1
			for end < len(s) && strings.IndexByte("0123456789.eE+-", s[end]) >= 0 {
				end++
			}
			c.paint(i, end, theme.NumberColor(), false)
			i = end
		case strings.HasPrefix(s[i:], "true"), strings.HasPrefix(s[i:], "false"):
			n := 4
			if ch == 'f' {
				n = 5
			}
			c.paint(i, i+n, theme.BoolColor(), false)
			i += n
		case strings.HasPrefix(s[i:], "null"):
			c.paint(i, i+4, theme.DimColor(), false)
			i += 4
		default:
			i++
		}
	}
}

// isStackFrame recognises the frame lines that follow an error in JVM,
// Python, Rust, Node.js and Go output.
func isStackFrame(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "at ") || strings.HasPrefix(trimmed, "Caused by:") {
		return true
	}
	if trimmed == line {
		return false
	}
	for _, ext := range []string{".java:", ".py:", ".rs:", ".js:", ".ts:", ".go:", `.py", line`} {
		if strings.Contains(trimmed, ext) {
			return true
		}
	}
	return false
}
