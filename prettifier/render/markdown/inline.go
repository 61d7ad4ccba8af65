// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/prettify/prettifier/types"
)

// inlineStyle is the attribute set accumulated while descending into nested
// emphasis.
type inlineStyle struct {
	fg                   tcell.Color
	bold, italic, strike bool
}

// inliner turns one line of inline markdown into segments.
type inliner struct {
	theme types.ThemeColors
	segs  []types.StyledSegment
}

func (in *inliner) emit(text string, st inlineStyle) {
	if text == "" {
		return
	}
	seg := types.Colored(text, st.fg)
	seg.Bold = st.bold
	seg.Italic = st.italic
	seg.Strikethrough = st.strike
	in.segs = append(in.segs, seg)
}

// Inline renders inline markup: code spans, links, autolinks, strong,
// emphasis and strikethrough. Unmatched delimiters are kept literally.
func Inline(text string, base tcell.Color, theme types.ThemeColors) []types.StyledSegment {
	in := &inliner{theme: theme}
	in.parse([]rune(text), inlineStyle{fg: base})
	if len(in.segs) == 0 {
		return []types.StyledSegment{types.Colored(text, base)}
	}
	return in.segs
}

func (in *inliner) parse(runes []rune, st inlineStyle) {
	var buf []rune
	flush := func() {
		in.emit(string(buf), st)
		buf = buf[:0]
	}

	i := 0
	for i < len(runes) {
		r := runes[i]
		switch r {
		case '\\':
			if i+1 < len(runes) && strings.ContainsRune("\\`*_[]()~#<>!|", runes[i+1]) {
				buf = append(buf, runes[i+1])
				i += 2
				continue
			}
			buf = append(buf, r)
			i++
		case '`':
			count := countRepeat(runes[i:], '`')
			end := findClosingBackticks(runes[i+count:], count)
			if end == -1 {
				buf = append(buf, runes[i:i+count]...)
				i += count
				continue
			}
			flush()
			code := types.Colored(string(runes[i+count:i+count+end]), in.theme.Palette[9])
			code.BG = in.theme.Palette[0]
			in.segs = append(in.segs, code)
			i += count + end + count
		case '[':
			label, dest, consumed, ok := parseLink(runes[i:])
			if !ok {
				buf = append(buf, r)
				i++
				continue
			}
			flush()
			seg := types.Colored(label, in.theme.LinkColor())
			seg.Underline = true
			seg.Bold = st.bold
			seg.Italic = st.italic
			seg.LinkURL = dest
			in.segs = append(in.segs, seg)
			i += consumed
		case '<':
			end := indexRune(runes[i+1:], '>')
			if end > 0 {
				candidate := string(runes[i+1 : i+1+end])
				if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
					flush()
					seg := types.Colored(candidate, in.theme.LinkColor())
					seg.Underline = true
					seg.LinkURL = candidate
					in.segs = append(in.segs, seg)
					i += end + 2
					continue
				}
			}
			buf = append(buf, r)
			i++
		case '*', '_':
			run := min(countRepeat(runes[i:], r), 3)
			// snake_case identifiers are not emphasis.
			if r == '_' && i > 0 && isWordRune(runes[i-1]) {
				buf = append(buf, runes[i:i+run]...)
				i += run
				continue
			}
			closeIdx := findClosingDelimiter(runes, i+run, r, run)
			if closeIdx == -1 || closeIdx == i+run {
				buf = append(buf, r)
				i++
				continue
			}
			flush()
			inner := st
			switch run {
			case 3:
				inner.bold, inner.italic = true, true
			case 2:
				inner.bold = true
			default:
				inner.italic = true
			}
			in.parse(runes[i+run:closeIdx], inner)
			i = closeIdx + run
		case '~':
			run := countRepeat(runes[i:], r)
			if run != 2 {
				buf = append(buf, runes[i:i+run]...)
				i += run
				continue
			}
			closeIdx := findClosingDelimiter(runes, i+run, r, run)
			if closeIdx == -1 {
				buf = append(buf, runes[i:i+run]...)
				i += run
				continue
			}
			flush()
			inner := st
			inner.strike = true
			in.parse(runes[i+run:closeIdx], inner)
			i = closeIdx + run
		default:
			buf = append(buf, r)
			i++
		}
	}
	flush()
}

// parseLink matches "[label](dest)" at the start of runes.
func parseLink(runes []rune) (label, dest string, consumed int, ok bool) {
	endText := findMatching(runes[1:], '[', ']')
	if endText == -1 || 1+endText+1 >= len(runes) || runes[1+endText+1] != '(' {
		return "", "", 0, false
	}
	destStart := 1 + endText + 2
	closeParen := findMatching(runes[destStart:], '(', ')')
	if closeParen == -1 {
		return "", "", 0, false
	}
	label = string(runes[1 : 1+endText])
	dest = strings.TrimSpace(string(runes[destStart : destStart+closeParen]))
	return label, dest, destStart + closeParen + 1, true
}

func findMatching(runes []rune, open, close rune) int {
	depth := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			i++
		case open:
			depth++
		case close:
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

func findClosingBackticks(runes []rune, count int) int {
	for i := 0; i < len(runes); i++ {
		if runes[i] != '`' {
			continue
		}
		n := countRepeat(runes[i:], '`')
		if n == count {
			return i
		}
		i += n - 1
	}
	return -1
}

func findClosingDelimiter(runes []rune, start int, delim rune, count int) int {
	for i := start; i < len(runes); i++ {
		if runes[i] != delim {
			continue
		}
		if countRepeat(runes[i:], delim) < count {
			continue
		}
		if runes[i-1] == '\\' || runes[i-1] == ' ' {
			continue
		}
		return i
	}
	return -1
}

func countRepeat(runes []rune, target rune) int {
	n := 0
	for n < len(runes) && runes[n] == target {
		n++
	}
	return n
}

func indexRune(runes []rune, target rune) int {
	for i, r := range runes {
		if r == target {
			return i
		}
		if r == ' ' {
			return -1
		}
	}
	return -1
}

func isWordRune(r rune) bool {
	return r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
