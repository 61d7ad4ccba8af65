// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gdamore/tcell/v2"
	"github.com/go-enry/go-enry/v2"

	"github.com/framegrace/prettify/prettifier/types"
)

// DefaultChromaStyle matches the default theme palette.
const DefaultChromaStyle = "catppuccin-mocha"

// classifierCandidates bounds the Bayesian classifier; enry returns nothing
// without a candidate list.
var classifierCandidates = []string{
	"Go", "Python", "JavaScript", "TypeScript", "Rust", "Java", "C", "C++",
	"C#", "Ruby", "Shell", "SQL", "Lua", "PHP", "Kotlin", "Swift", "HTML",
	"CSS", "JSON", "YAML", "TOML", "Dockerfile", "Makefile", "HCL",
}

// Highlighter colours code with a chroma style.
type Highlighter struct {
	style *chroma.Style
}

// NewHighlighter resolves styleName, falling back to DefaultChromaStyle.
func NewHighlighter(styleName string) *Highlighter {
	if styleName == "" {
		styleName = DefaultChromaStyle
	}
	return &Highlighter{style: styles.Get(styleName)}
}

// Lines tokenises code as one text so the lexer sees full context, and
// returns exactly one styled line per input line. An empty lang is guessed.
func (h *Highlighter) Lines(code []string, lang string) []types.StyledLine {
	out := make([]types.StyledLine, len(code))
	if len(code) == 0 {
		return out
	}
	text := strings.Join(code, "\n") + "\n"
	if lang == "" {
		lang = GuessLanguage(code)
	}
	lexer := chroma.Coalesce(lexerFor(lang, text))
	tokens, err := chroma.Tokenise(lexer, nil, text)
	if err != nil {
		for i, ln := range code {
			out[i] = types.PlainLine(ln)
		}
		return out
	}

	base := h.style.Get(chroma.Text).Colour
	row := 0
	for _, tok := range tokens {
		if tok.Type == chroma.EOFType {
			break
		}
		entry := h.style.Get(tok.Type)
		parts := strings.Split(tok.Value, "\n")
		for pi, part := range parts {
			if pi > 0 {
				row++
			}
			if part == "" || row >= len(out) {
				continue
			}
			out[row].Segments = append(out[row].Segments, tokenSegment(part, entry, base))
		}
	}
	return out
}

// tokenSegment converts a chroma style entry; tokens in the base text
// colour keep the terminal default so they follow the user's theme.
func tokenSegment(text string, entry chroma.StyleEntry, base chroma.Colour) types.StyledSegment {
	seg := types.Plain(text)
	seg.Bold = entry.Bold == chroma.Yes
	seg.Italic = entry.Italic == chroma.Yes
	seg.Underline = entry.Underline == chroma.Yes
	if entry.Colour.IsSet() && entry.Colour != base {
		seg.FG = tcell.NewRGBColor(int32(entry.Colour.Red()), int32(entry.Colour.Green()), int32(entry.Colour.Blue()))
	}
	return seg
}

func lexerFor(name, text string) chroma.Lexer {
	if name != "" {
		if l := lexers.Get(name); l != nil {
			return l
		}
	}
	if l := lexers.Analyse(text); l != nil {
		return l
	}
	return lexers.Fallback
}

// GuessLanguage names the language of an untagged code block: shebang
// first, then a few unambiguous openers, then enry's classifier. It returns
// "" when nothing is confident.
func GuessLanguage(code []string) string {
	if len(code) == 0 {
		return ""
	}
	content := []byte(strings.Join(code, "\n"))
	if lang, ok := enry.GetLanguageByShebang(content); ok {
		return strings.ToLower(lang)
	}
	first := strings.TrimSpace(code[0])
	switch {
	case strings.HasPrefix(first, "package "):
		return "go"
	case strings.HasPrefix(first, "<?php"):
		return "php"
	case strings.HasPrefix(first, "<?xml"):
		return "xml"
	}
	if langs := enry.GetLanguagesByClassifier("", content, classifierCandidates); len(langs) > 0 {
		return strings.ToLower(langs[0])
	}
	return ""
}
