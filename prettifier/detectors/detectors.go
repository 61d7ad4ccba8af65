// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package detectors holds the built-in detection rule sets. Each constructor
// returns a fresh detector; callers layer user rules and overrides on top with
// the detect package's pure merge functions.
package detectors

import (
	"github.com/framegrace/prettify/prettifier/detect"
	"github.com/framegrace/prettify/prettifier/types"
)

// Format ids. These are stable: config files and triggers address formats by
// id.
const (
	Markdown   = "markdown"
	JSON       = "json"
	YAML       = "yaml"
	TOML       = "toml"
	XML        = "xml"
	CSV        = "csv"
	Table      = "table"
	Diff       = "diff"
	Log        = "log"
	Diagrams   = "diagrams"
	StackTrace = "stack_trace"
	SQLResults = "sql_results"
)

// Entry is one built-in detector with its default priority.
type Entry struct {
	FormatID string
	Priority int
	New      func() types.Detector
}

// DefaultPriority is used by every format unless configured otherwise.
const DefaultPriority = 50

// Builtin lists the built-in detectors in registration order. Diagrams sits
// above markdown so fenced mermaid/plantuml blocks tie-break to the diagram
// renderer.
func Builtin() []Entry {
	return []Entry{
		{Diagrams, DefaultPriority + 10, func() types.Detector { return NewDiagrams(nil) }},
		{Markdown, DefaultPriority, func() types.Detector { return NewMarkdown() }},
		{JSON, DefaultPriority, func() types.Detector { return NewJSON() }},
		{YAML, DefaultPriority, func() types.Detector { return NewYAML() }},
		{TOML, DefaultPriority, func() types.Detector { return NewTOML() }},
		{XML, DefaultPriority, func() types.Detector { return NewXML() }},
		{CSV, DefaultPriority, func() types.Detector { return NewCSV() }},
		{Diff, DefaultPriority, func() types.Detector { return NewDiff() }},
		{Log, DefaultPriority, func() types.Detector { return NewLog() }},
		{StackTrace, DefaultPriority, func() types.Detector { return NewStackTrace() }},
		{SQLResults, DefaultPriority, func() types.Detector { return NewSQLResults() }},
		{Table, DefaultPriority - 10, func() types.Detector { return NewTable() }},
	}
}

// Lookup returns the built-in entry for formatID.
func Lookup(formatID string) (Entry, bool) {
	for _, e := range Builtin() {
		if e.FormatID == formatID {
			return e, true
		}
	}
	return Entry{}, false
}

// shorthands for the rule tables below
var (
	rule     = detect.BuiltIn
	anyLine  = types.AnyLine()
	fullText = types.FullBlock()
	command  = types.PrecedingCommand()
	first    = types.FirstLines
	last     = types.LastLines
)

const (
	supporting = types.Supporting
	strong     = types.Strong
	definitive = types.Definitive
)
