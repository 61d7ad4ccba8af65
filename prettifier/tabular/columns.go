// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tabular

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Column boundaries for space-aligned output come from one of two sources.
// When the first row reads like a header, its word starts are the candidate
// columns and the rows below vote on each. Otherwise the columns are the
// gutters: runs of two or more spaces that recur at the same offset.

const (
	// minRowRunes is the shortest row that takes part in header voting.
	minRowRunes = 10
	// minGutterRunes is the shortest row scanned for gutters.
	minGutterRunes = 20
	// bucketWidth groups gutters that start within a few runes of each other.
	bucketWidth = 4
)

// SpaceAligned scores column-aligned command output such as ps, kubectl or ls -l.
type SpaceAligned struct{}

func (SpaceAligned) Score(lines []string) float64 {
	rows := nonBlank(lines)
	if len(rows) < 3 || codeShare(rows) > 0.3 {
		return 0
	}
	if cols := headerColumns(rows); len(cols) >= 2 {
		return columnConfidence(len(cols))
	}
	switch n := len(recurringBuckets(rows)); {
	case n >= 2:
		return columnConfidence(n + 1)
	case n == 1:
		return 0.5
	}
	return 0
}

// Compatible accepts rows with a gutter, or with at least four fields when
// wide values squeezed every gutter to one space. Short lines such as
// "total 24" or "./dir:" end a run of rows.
func (SpaceAligned) Compatible(line string) bool {
	text := strings.TrimSpace(line)
	switch {
	case text == "":
		return true
	case len(text) < minRowRunes, LooksLikeCode(text):
		return false
	case strings.Contains(text, "  "):
		return true
	}
	return len(strings.Fields(text)) >= 4
}

func (SpaceAligned) Parse(lines []string) *Table {
	rows := nonBlank(lines)
	if len(rows) < 3 {
		return nil
	}
	starts := headerColumns(rows)
	if len(starts) < 2 {
		starts = gutterColumns(rows)
	}
	if len(starts) < 2 {
		return nil
	}

	width := maxRuneWidth(lines)
	t := &Table{Header: -1, Kind: KindSpaceAligned, Align: make([]Align, len(starts))}
	for i, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		t.Rows = append(t.Rows, sliceColumns(runesOf(ln), starts, width))
		t.SourceRows = append(t.SourceRows, i)
	}
	if len(t.Rows) > 0 && LooksLikeHeader(t.Rows[0]) {
		t.Header = 0
	}
	return t
}

// sliceColumns cuts one row at the column starts. The last column runs to
// width.
func sliceColumns(r []rune, starts []int, width int) []string {
	cells := make([]string, len(starts))
	for c, from := range starts {
		to := width
		if c+1 < len(starts) {
			to = starts[c+1]
		}
		if from >= len(r) {
			continue
		}
		cells[c] = strings.TrimSpace(string(r[from:min(to, len(r))]))
	}
	return cells
}

func runesOf(line string) []rune {
	return []rune(strings.TrimRight(line, "\r\n"))
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return out
}

// ─── Header voting ───────────────────────────────────────────────────────────

// wordStart is a header word and the width of the blank run before it.
type wordStart struct {
	at, blanks int
}

func headerWords(header []rune) []wordStart {
	var words []wordStart
	for i := 1; i < len(header); i++ {
		if header[i] == ' ' || header[i-1] != ' ' {
			continue
		}
		from := i - 1
		for from > 0 && header[from-1] == ' ' {
			from--
		}
		words = append(words, wordStart{at: i, blanks: i - from})
	}
	return words
}

// blankVotes counts rows of at least minRowRunes runes and how many of them
// have a space at col.
func blankVotes(rows []string, col int) (yes, voters int) {
	for _, ln := range rows {
		r := runesOf(ln)
		if len(r) < minRowRunes {
			continue
		}
		voters++
		if col < len(r) && r[col] == ' ' {
			yes++
		}
	}
	return yes, voters
}

// headerColumns keeps each header word whose preceding column is blank in
// enough of the rows below. A word after a single space (ps's "PID TTY")
// needs 70% of at least five rows; wider gaps need half of two.
func headerColumns(rows []string) []int {
	if len(rows) < 3 {
		return nil
	}
	header := runesOf(rows[0])
	if len(header) < minRowRunes || strings.TrimSpace(string(header)) == "" {
		return nil
	}
	words := headerWords(header)
	if len(words) == 0 {
		return nil
	}

	starts := []int{0}
	for _, w := range words {
		quorum, pct := 2, 50
		if w.blanks < 2 {
			quorum, pct = 5, 70
		}
		yes, voters := blankVotes(rows[1:], w.at-1)
		if voters >= quorum && yes*100/voters >= pct {
			starts = append(starts, w.at)
		}
	}
	if len(starts) < 2 {
		return nil
	}
	return starts
}

// ─── Gutters ─────────────────────────────────────────────────────────────────

// blankRun is a run of two or more spaces, [from, to).
type blankRun struct {
	from, to int
}

func blankRuns(r []rune) []blankRun {
	var runs []blankRun
	for i := 0; i+1 < len(r); i++ {
		if r[i] != ' ' || r[i+1] != ' ' {
			continue
		}
		from := i
		for i+1 < len(r) && r[i+1] == ' ' {
			i++
		}
		runs = append(runs, blankRun{from, i + 1})
	}
	return runs
}

func bucketOf(col int) int { return col / bucketWidth * bucketWidth }

// recurringBuckets returns, in order, the buckets holding a gutter in at
// least half of the rows long enough to scan.
func recurringBuckets(rows []string) []int {
	hits := map[int]int{}
	scanned := 0
	for _, ln := range rows {
		r := runesOf(ln)
		if strings.TrimSpace(string(r)) == "" || len(r) < minGutterRunes {
			continue
		}
		scanned++
		for _, run := range blankRuns(r) {
			// A run in the last two runes is trailing padding.
			if run.from < len(r)-2 {
				hits[bucketOf(run.from)]++
			}
		}
	}
	if scanned < 2 {
		return nil
	}
	need := max(scanned/2, 1)
	var out []int
	for b, n := range hits {
		if n >= need {
			out = append(out, b)
		}
	}
	sort.Ints(out)
	return out
}

// gutter is the union of the blank runs of one bucket. firstEnd is where the
// widest value of the next column starts.
type gutter struct {
	from, firstEnd, lastEnd int
}

func gutterOf(rows []string, bucket int) (gutter, bool) {
	g := gutter{from: -1}
	for _, ln := range rows {
		r := runesOf(ln)
		if len(r) < minGutterRunes {
			continue
		}
		for _, run := range blankRuns(r) {
			if bucketOf(run.from) != bucket {
				continue
			}
			if g.from < 0 {
				g = gutter{run.from, run.to, run.to}
				continue
			}
			g.from = min(g.from, run.from)
			g.firstEnd = min(g.firstEnd, run.to)
			g.lastEnd = max(g.lastEnd, run.to)
		}
	}
	return g, g.from >= 0
}

// mergeGutters joins gutters that touch or overlap.
func mergeGutters(gs []gutter) []gutter {
	sort.Slice(gs, func(i, j int) bool { return gs[i].from < gs[j].from })
	out := []gutter{gs[0]}
	for _, g := range gs[1:] {
		cur := &out[len(out)-1]
		if g.from > cur.lastEnd {
			out = append(out, g)
			continue
		}
		cur.lastEnd = max(cur.lastEnd, g.lastEnd)
		cur.firstEnd = min(cur.firstEnd, g.firstEnd)
	}
	return out
}

// columnAfter is the leftmost text after g over every row that is blank at
// g.from, so a right-aligned size column starts at its widest value even when
// only one space separates it.
func columnAfter(rows []string, g gutter) int {
	col := g.firstEnd
	for _, ln := range rows {
		r := runesOf(ln)
		if g.from >= len(r) || r[g.from] != ' ' {
			continue
		}
		for i := g.from + 1; i < len(r); i++ {
			if r[i] != ' ' {
				col = min(col, i)
				break
			}
		}
	}
	return col
}

func gutterColumns(rows []string) []int {
	var gs []gutter
	for _, b := range recurringBuckets(rows) {
		if g, ok := gutterOf(rows, b); ok {
			gs = append(gs, g)
		}
	}
	if len(gs) == 0 {
		return nil
	}
	starts := []int{0}
	for _, g := range mergeGutters(gs) {
		starts = append(starts, columnAfter(rows, g))
	}
	return starts
}

// ─── Heuristics ──────────────────────────────────────────────────────────────

// columnConfidence grows with the column count: 2 is 0.6, 5 or more is 0.9.
func columnConfidence(cols int) float64 {
	if cols < 2 {
		return 0
	}
	return min(0.5+0.1*float64(cols), 0.9)
}

// codeShare is the fraction of rows that read as source code.
func codeShare(rows []string) float64 {
	if len(rows) == 0 {
		return 0
	}
	code := 0
	for _, ln := range rows {
		text := strings.TrimSpace(ln)
		if text != "" && (LooksLikeCode(text) || strings.HasPrefix(ln, "\t")) {
			code++
		}
	}
	return float64(code) / float64(len(rows))
}

var codeMarkers = []string{":=", "func ", "return ", "if ", "for ", "switch ", "import ", "package "}

// LooksLikeCode reports whether a trimmed line resembles source code.
func LooksLikeCode(text string) bool {
	switch text {
	case "{", "}", "})", "),":
		return true
	}
	if strings.HasSuffix(text, "{") {
		return true
	}
	for _, m := range codeMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func maxRuneWidth(lines []string) int {
	w := 0
	for _, ln := range lines {
		w = max(w, utf8.RuneCountInString(strings.TrimRight(ln, "\r\n")))
	}
	return w
}

// LooksLikeHeader reports whether at least half the cells are upper-case
// labels such as NAME, READY or %CPU.
func LooksLikeHeader(row []string) bool {
	labels := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell != "" && isLabel(cell) {
			labels++
		}
	}
	return labels >= len(row)/2
}

func isLabel(cell string) bool {
	for _, r := range cell {
		if !unicode.IsUpper(r) && !strings.ContainsRune("_-%/ ", r) {
			return false
		}
	}
	return true
}
