// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package tabular recognises table-shaped text (Markdown tables, pipe
// separated output, space-aligned command output, CSV/TSV) and parses it into
// a Table. Scorers are stateless and safe for concurrent use.
package tabular

import (
	"regexp"
	"strings"
)

// ─── Common Types ────────────────────────────────────────────────────────────

// Align is a column alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

// Kind identifies the table flavour that was parsed.
type Kind int

const (
	KindNone Kind = iota
	KindMarkdown
	KindPipe
	KindSpaceAligned
	KindCSV
)

// Table is a parsed table.
type Table struct {
	Align  []Align
	Header int        // index of the header in Rows, -1 if none
	Rows   [][]string // cell values per row, header included

	// SourceRows[i] is the input line index Rows[i] was parsed from.
	SourceRows []int
	Kind       Kind
}

// Columns returns the column count.
func (t *Table) Columns() int { return len(t.Align) }

// HeaderCells returns the header row, or nil.
func (t *Table) HeaderCells() []string {
	if t.Header < 0 || t.Header >= len(t.Rows) {
		return nil
	}
	return t.Rows[t.Header]
}

// DataRows returns every row except the header.
func (t *Table) DataRows() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for i, r := range t.Rows {
		if i != t.Header {
			out = append(out, r)
		}
	}
	return out
}

// Scorer scores and parses lines for one table flavour.
type Scorer interface {
	Score(lines []string) float64
	Parse(lines []string) *Table
	Compatible(line string) bool
}

// ─── Markdown ────────────────────────────────────────────────────────────────

// Separator rows need two or more cells of three dashes, colons optional.
var (
	separatorRow  = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)
	separatorCell = regexp.MustCompile(`^\s*(:?)-{3,}(:?)\s*$`)
)

// Markdown scores pipe tables with a separator row.
type Markdown struct{}

// IsSeparator reports whether line is a markdown table separator row.
func IsSeparator(line string) bool {
	return separatorRow.MatchString(strings.TrimRight(line, "\r\n"))
}

func separatorIndex(lines []string) int {
	for i, ln := range lines {
		if IsSeparator(ln) {
			return i
		}
	}
	return -1
}

func (Markdown) Score(lines []string) float64 {
	sep := separatorIndex(lines)
	if len(lines) < 2 || sep < 1 {
		return 0
	}
	cols := len(SplitPipeCells(lines[sep]))
	if cols < 2 {
		return 0
	}
	share, ok := rowShare(lines, sep, func(ln string) bool { return len(SplitPipeCells(ln)) == cols })
	switch {
	case !ok:
		return 0
	case share >= 0.7:
		return 0.95 + 0.05*share
	}
	return share * 0.9
}

// rowShare is the fraction of non-blank lines, other than lines[skip], that
// satisfy match. ok is false when there are none.
func rowShare(lines []string, skip int, match func(string) bool) (share float64, ok bool) {
	hits, rows := 0, 0
	for i, ln := range lines {
		if i == skip || strings.TrimSpace(ln) == "" {
			continue
		}
		rows++
		if match(ln) {
			hits++
		}
	}
	if rows == 0 {
		return 0, false
	}
	return float64(hits) / float64(rows), true
}

func (Markdown) Compatible(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.Contains(trimmed, "|")
}

func (Markdown) Parse(lines []string) *Table {
	if len(lines) < 2 {
		return nil
	}
	sep := separatorIndex(lines)
	if sep < 1 {
		return nil
	}

	var aligns []Align
	for _, cell := range SplitPipeCells(lines[sep]) {
		aligns = append(aligns, ParseAlignment(cell))
	}

	t := &Table{Align: aligns, Header: -1, Kind: KindMarkdown}
	for i, ln := range lines {
		if i == sep || strings.TrimSpace(ln) == "" {
			continue
		}
		if i == sep-1 {
			t.Header = len(t.Rows)
		}
		t.Rows = append(t.Rows, PadRow(SplitPipeCells(ln), len(aligns)))
		t.SourceRows = append(t.SourceRows, i)
	}
	return t
}

// SplitPipeCells splits a pipe-delimited line into trimmed cells, stripping
// one leading and one trailing pipe.
func SplitPipeCells(line string) []string {
	line = strings.TrimSpace(strings.TrimRight(line, "\r\n"))
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// ParseAlignment reads ":---", "---:" or ":---:" separator cells.
func ParseAlignment(cell string) Align {
	m := separatorCell.FindStringSubmatch(cell)
	if m == nil {
		return AlignLeft
	}
	left, right := m[1] == ":", m[2] == ":"
	switch {
	case left && right:
		return AlignCenter
	case right:
		return AlignRight
	default:
		return AlignLeft
	}
}

// PadRow returns a row with exactly n cells.
func PadRow(cells []string, n int) []string {
	if len(cells) == n {
		return cells
	}
	row := make([]string, n)
	copy(row, cells)
	return row
}

// ─── Pipe-separated ──────────────────────────────────────────────────────────

// Pipe scores pipe-separated output without a markdown separator.
type Pipe struct{}

// Score defers to Markdown (returns 0) when a separator row is present.
func (Pipe) Score(lines []string) float64 {
	if len(lines) < 2 || separatorIndex(lines) >= 0 {
		return 0
	}
	hist, rows := histogram(lines, func(text string) int { return strings.Count(text, "|") })
	if rows < 2 {
		return 0
	}
	delete(hist, 0)
	pipes, agreeing := mode(hist)
	if pipes < 1 {
		return 0
	}
	share := float64(agreeing) / float64(rows)
	if share >= 0.7 {
		return 0.7 + 0.2*share
	}
	return share * 0.7
}

// histogram tallies count over the trimmed non-blank lines. rows is the
// number of lines tallied.
func histogram(lines []string, count func(string) int) (hist map[int]int, rows int) {
	hist = map[int]int{}
	for _, ln := range lines {
		text := strings.TrimSpace(ln)
		if text == "" {
			continue
		}
		rows++
		hist[count(text)]++
	}
	return hist, rows
}

func (Pipe) Compatible(line string) bool {
	return Markdown{}.Compatible(line)
}

func (Pipe) Parse(lines []string) *Table {
	if len(lines) < 2 {
		return nil
	}
	t := &Table{Header: 0, Kind: KindPipe}
	maxCols := 0
	for i, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		cells := SplitPipeCells(ln)
		if len(cells) > maxCols {
			maxCols = len(cells)
		}
		t.Rows = append(t.Rows, cells)
		t.SourceRows = append(t.SourceRows, i)
	}
	if len(t.Rows) < 2 || maxCols < 2 {
		return nil
	}
	for i := range t.Rows {
		t.Rows[i] = PadRow(t.Rows[i], maxCols)
	}
	t.Align = make([]Align, maxCols)
	return t
}

// mode returns the most frequent count, preferring the larger count on ties.
func mode(freq map[int]int) (count, n int) {
	for c, f := range freq {
		if f > n || (f == n && c > count) {
			count, n = c, f
		}
	}
	return count, n
}

// ─── CSV / TSV ───────────────────────────────────────────────────────────────

// CSV scores comma or tab separated values with RFC 4180 quoting.
type CSV struct{}

// Delimiter picks ',' or '\t' for lines. It returns 0 when neither yields a
// consistent field count of at least three columns.
func Delimiter(lines []string) (delim byte, fields int, score float64) {
	for _, d := range []byte{',', '\t'} {
		if n, s := scoreDelim(lines, d); s > 0 {
			return d, n + 1, s
		}
	}
	return 0, 0, 0
}

func scoreDelim(lines []string, delim byte) (int, float64) {
	hist, rows := histogram(lines, func(text string) int { return CountDelimiters(text, delim) })
	if rows < 3 {
		return 0, 0
	}
	best, agreeing := mode(hist)
	// One delimiter per line matches JSON trailing commas and prose.
	if best < 2 {
		return 0, 0
	}
	share := float64(agreeing) / float64(rows)
	if share < 0.8 {
		return 0, 0
	}
	return best, 0.5 + 0.4*share
}

func (CSV) Score(lines []string) float64 {
	_, _, s := Delimiter(lines)
	return s
}

func (CSV) Compatible(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	return strings.Count(trimmed, ",") >= 2 || strings.Count(trimmed, "\t") >= 2
}

func (CSV) Parse(lines []string) *Table {
	if len(lines) < 2 {
		return nil
	}
	delim, _, _ := Delimiter(lines)
	if delim == 0 {
		return nil
	}
	return ParseDelimited(lines, delim)
}

// ParseDelimited splits every non-blank line on delim. The first row is the
// header.
func ParseDelimited(lines []string, delim byte) *Table {
	t := &Table{Header: 0, Kind: KindCSV}
	maxCols := 0
	for i, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if trimmed == "" {
			continue
		}
		cells := SplitCSVLine(trimmed, delim)
		maxCols = max(maxCols, len(cells))
		t.Rows = append(t.Rows, cells)
		t.SourceRows = append(t.SourceRows, i)
	}
	if len(t.Rows) < 2 || maxCols < 2 {
		return nil
	}
	for i := range t.Rows {
		t.Rows[i] = PadRow(t.Rows[i], maxCols)
	}
	t.Align = make([]Align, maxCols)
	return t
}

// CountDelimiters counts delim outside double-quoted fields.
func CountDelimiters(line string, delim byte) int {
	count := 0
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '"':
			inQuote = !inQuote
		case !inQuote && line[i] == delim:
			count++
		}
	}
	return count
}

// SplitCSVLine splits on delim with RFC 4180 quoting; "" inside a quoted field
// is an escaped quote.
func SplitCSVLine(line string, delim byte) []string {
	var (
		fields  []string
		field   strings.Builder
		inQuote bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case inQuote:
			if ch != '"' {
				field.WriteByte(ch)
				continue
			}
			if i+1 < len(line) && line[i+1] == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuote = false
		case ch == '"':
			inQuote = true
		case ch == delim:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	return append(fields, strings.TrimSpace(field.String()))
}
