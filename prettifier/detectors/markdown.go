// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package detectors

import "github.com/framegrace/prettify/prettifier/detect"

// NewMarkdown detects Markdown documents. Fences are definitive; everything
// else accumulates.
func NewMarkdown() *detect.RegexDetector {
	return detect.NewBuilder(Markdown, "Markdown").
		Threshold(0.6).
		MinMatchingRules(1).
		Rules(
			rule("md_fenced_code", "^```\\w*\\s*$", 0.8, anyLine, definitive, "Fenced code block opening (``` or ```language)"),
			rule("md_fenced_tilde", `^~~~\w*\s*$`, 0.8, anyLine, definitive, "Tilde-style fenced code block"),
			rule("md_atx_header", `^#{1,6}\s+\S`, 0.5, anyLine, strong, "ATX-style header (# through ######)"),
			rule("md_table", `^\|.*\|.*\|`, 0.4, anyLine, strong, "Markdown table row with pipe delimiters"),
			rule("md_table_separator", `^\|[\s\-:\|]+\|`, 0.3, anyLine, supporting, "Markdown table separator row"),
			rule("md_bold", `\*\*[^*]+\*\*`, 0.2, anyLine, supporting, "Bold text (**text**)"),
			rule("md_italic", `(?:^|[^*])\*[^*]+\*(?:[^*]|$)`, 0.15, anyLine, supporting, "Italic text (*text*)"),
			rule("md_link", `\[([^\]]+)\]\(([^)]+)\)`, 0.2, anyLine, supporting, "Markdown link [text](url)"),
			rule("md_list_bullet", `^\s*[-*+]\s+\S`, 0.15, anyLine, supporting, "Bullet list item (-, *, +)"),
			rule("md_list_ordered", `^\s*\d+[.)]\s+\S`, 0.15, anyLine, supporting, "Ordered list item (1. or 1))"),
			rule("md_blockquote", `^>\s+`, 0.15, anyLine, supporting, "Blockquote (> text)"),
			rule("md_inline_code", "`[^`]+`", 0.1, anyLine, supporting, "Inline code (`code`)"),
			rule("md_horizontal_rule", `^[-*_]\s*[-*_]\s*[-*_][\s*_-]*$`, 0.15, anyLine, supporting, "Horizontal rule (---, ***, ___)"),
			rule("md_viewer_context", `^(glow|mdcat|bat|cat)\s+\S+\.(md|markdown)\b`, 0.3, command, supporting, "Preceding command prints a .md file"),
		).
		Build()
}
