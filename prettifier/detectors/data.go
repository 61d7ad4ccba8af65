// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package detectors

import "github.com/framegrace/prettify/prettifier/detect"

// NewJSON is deliberately lenient: brace shapes alone can pass, and the
// renderer rejects text that does not parse.
func NewJSON() *detect.RegexDetector {
	return detect.NewBuilder(JSON, "JSON").
		Threshold(0.6).
		MinMatchingRules(1).
		Rules(
			rule("json_open_brace", `^\s*\{\s*$`, 0.4, first(3), strong, "Line containing only an opening brace {"),
			rule("json_open_bracket", `^\s*\[\s*$`, 0.35, first(3), strong, "Line containing only an opening bracket ["),
			rule("json_key_value", `^\s*"[^"]+"\s*:\s*`, 0.3, anyLine, strong, `JSON key-value pattern ("key": value)`),
			rule("json_close_brace", `^\s*[\}\]]\s*,?\s*$`, 0.2, last(3), supporting, "Line containing only a closing brace or bracket"),
			rule("json_curl_context", `^(curl|http|httpie|wget)\s+`, 0.3, command, supporting, "Preceding command is curl, http, httpie, or wget"),
			rule("json_jq_context", `^(jq|gron|fx)\s+`, 0.3, command, supporting, "Preceding command is jq, gron, or fx"),
		).
		Build()
}

// NewYAML needs two signals since "key: value" alone is common in plain
// output.
func NewYAML() *detect.RegexDetector {
	return detect.NewBuilder(YAML, "YAML").
		Threshold(0.6).
		MinMatchingRules(2).
		Rules(
			rule("yaml_doc_start", `^---\s*$`, 0.5, first(3), definitive, "YAML document start marker (---)"),
			rule("yaml_key_value", `^[a-zA-Z_][\w.\-]*:(\s|$)`, 0.4, anyLine, strong, "Top-level YAML key-value pair (key: value)"),
			rule("yaml_nested", `^\s{2,}[a-zA-Z_][\w.\-]*:(\s|$)`, 0.25, anyLine, supporting, "Indented YAML key-value pair (nested mapping)"),
			rule("yaml_list", `^\s*-\s+\S`, 0.2, anyLine, supporting, "YAML list item (- item)"),
			rule("yaml_kubectl_context", `^(kubectl|helm|yq)\b.*(-o\s*yaml|--output[= ]yaml|template|eval)`, 0.3, command, supporting, "Preceding command prints YAML"),
		).
		Build()
}

// NewTOML detects TOML documents such as Cargo.toml or pyproject.toml.
func NewTOML() *detect.RegexDetector {
	return detect.NewBuilder(TOML, "TOML").
		Threshold(0.6).
		MinMatchingRules(2).
		Rules(
			rule("toml_table_header", `^\[[A-Za-z0-9_.\-"' ]+\]\s*$`, 0.4, anyLine, strong, "Table header ([section])"),
			rule("toml_array_table", `^\[\[[A-Za-z0-9_.\-"' ]+\]\]\s*$`, 0.5, anyLine, strong, "Array of tables header ([[section]])"),
			rule("toml_key_value", `^\s*[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+)*\s*=\s*\S`, 0.3, anyLine, supporting, "key = value pair"),
			rule("toml_file_context", `\.toml\b`, 0.3, command, supporting, "Preceding command mentions a .toml file"),
		).
		Build()
}

// NewXML detects XML and HTML-like markup.
func NewXML() *detect.RegexDetector {
	return detect.NewBuilder(XML, "XML").
		Threshold(0.6).
		MinMatchingRules(1).
		Rules(
			rule("xml_declaration", `^\s*<\?xml\s`, 1.0, first(2), definitive, "XML declaration (<?xml ...?>)"),
			rule("xml_doctype", `^\s*<!DOCTYPE\s`, 0.5, first(3), strong, "DOCTYPE declaration"),
			rule("xml_open_tag", `^\s*<[A-Za-z][\w:.\-]*(\s+[\w:.\-]+\s*=\s*("[^"]*"|'[^']*'))*\s*/?>`, 0.4, first(3), strong, "Opening element at the top of the block"),
			rule("xml_close_tag", `^\s*</[A-Za-z][\w:.\-]*>\s*$`, 0.3, last(3), supporting, "Closing element at the end of the block"),
			rule("xml_attribute", `<[A-Za-z][\w:.\-]*\s+[\w:.\-]+="[^"]*"`, 0.1, anyLine, supporting, "Element with a quoted attribute"),
		).
		Build()
}
