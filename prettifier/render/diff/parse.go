// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies one line of diff output.
type Kind int

const (
	KindText       Kind = iota // anything outside a file: commit headers, prose
	KindFileHeader             // diff --git and extended headers (index, mode, rename)
	KindOldPath                // --- a/path
	KindNewPath                // +++ b/path
	KindHunk                   // @@ -a,b +c,d @@ section
	KindContext
	KindAdded
	KindRemoved
	KindNoNewline // \ No newline at end of file
)

// Line is one parsed source line. For context, added and removed lines Text
// excludes the +/-/space marker. OldNo and NewNo are 1-based file line
// numbers, zero when the side does not apply.
type Line struct {
	Kind    Kind
	Text    string
	Src     int
	OldNo   int
	NewNo   int
	Section string // hunk headers only: text after the closing @@
}

var reHunk = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)$`)

var extendedHeaders = []string{
	"index ", "new file mode ", "deleted file mode ", "old mode ", "new mode ",
	"similarity index ", "dissimilarity index ", "rename from ", "rename to ",
	"copy from ", "copy to ", "Binary files ",
}

// Parse classifies every line of a unified or git diff. Hunk bodies are
// bounded by the counts in their @@ header, so text that follows a hunk (the
// next commit header of git log -p, say) is not swallowed as context.
func Parse(lines []string) []Line {
	out := make([]Line, 0, len(lines))
	var (
		oldLeft, newLeft int
		oldNo, newNo     int
		inHeader         bool
	)
	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		if oldLeft > 0 || newLeft > 0 {
			if l, ok := hunkLine(ln, i, &oldLeft, &newLeft, &oldNo, &newNo); ok {
				out = append(out, l)
				continue
			}
			oldLeft, newLeft = 0, 0
		}
		switch {
		case strings.HasPrefix(ln, `\ `):
			out = append(out, Line{Kind: KindNoNewline, Text: ln, Src: i})
		case strings.HasPrefix(ln, "diff "):
			out = append(out, Line{Kind: KindFileHeader, Text: ln, Src: i})
			inHeader = true
		case strings.HasPrefix(ln, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			out = append(out,
				Line{Kind: KindOldPath, Text: strings.TrimSpace(ln[4:]), Src: i},
				Line{Kind: KindNewPath, Text: strings.TrimSpace(lines[i+1][4:]), Src: i + 1})
			i++
			inHeader = false
		case reHunk.MatchString(ln):
			m := reHunk.FindStringSubmatch(ln)
			oldNo, newNo = atoi(m[1], 1), atoi(m[3], 1)
			oldLeft, newLeft = atoi(m[2], 1), atoi(m[4], 1)
			out = append(out, Line{Kind: KindHunk, Text: hunkHead(ln), Src: i, OldNo: oldNo, NewNo: newNo, Section: m[5]})
			inHeader = false
		case inHeader && hasAnyPrefix(ln, extendedHeaders):
			out = append(out, Line{Kind: KindFileHeader, Text: ln, Src: i})
		default:
			out = append(out, Line{Kind: KindText, Text: ln, Src: i})
			inHeader = false
		}
	}
	return out
}

func hunkLine(ln string, src int, oldLeft, newLeft, oldNo, newNo *int) (Line, bool) {
	if ln == "" {
		// Some tools strip the trailing space of empty context lines.
		ln = " "
	}
	switch ln[0] {
	case ' ':
		l := Line{Kind: KindContext, Text: ln[1:], Src: src, OldNo: *oldNo, NewNo: *newNo}
		*oldNo++
		*newNo++
		*oldLeft--
		*newLeft--
		return l, true
	case '-':
		if *oldLeft <= 0 {
			return Line{}, false
		}
		l := Line{Kind: KindRemoved, Text: ln[1:], Src: src, OldNo: *oldNo}
		*oldNo++
		*oldLeft--
		return l, true
	case '+':
		if *newLeft <= 0 {
			return Line{}, false
		}
		l := Line{Kind: KindAdded, Text: ln[1:], Src: src, NewNo: *newNo}
		*newNo++
		*newLeft--
		return l, true
	case '\\':
		return Line{Kind: KindNoNewline, Text: ln, Src: src}, true
	}
	return Line{}, false
}

// hunkHead returns the "@@ ... @@" part of a hunk header.
func hunkHead(ln string) string {
	if j := strings.Index(ln[2:], "@@"); j >= 0 {
		return ln[:j+4]
	}
	return ln
}

// HasHunks reports whether parsed contains anything diff-shaped.
func HasHunks(parsed []Line) bool {
	for _, l := range parsed {
		if l.Kind == KindHunk || l.Kind == KindOldPath {
			return true
		}
	}
	return false
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
