// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tabular

import "regexp"

// ColumnType is the semantic type inferred from a column's values.
type ColumnType int

const (
	ColText ColumnType = iota
	ColNumber
	ColDateTime
	ColPath
)

var (
	reColNumber   = regexp.MustCompile(`^-?[0-9][0-9,.]*%?$`)
	reColDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{1,3}[dhms]|<?\d+[dhms](\d+[dhms])*>?|\d{2}:\d{2}(:\d{2})?|\d{1,2}[A-Z][a-z]{2}\d{2,4}|\d+\.\d+[dhms])$`)
	reColPath     = regexp.MustCompile(`[/\\]|^\.\w+$|^[\w.-]+\.\w{1,5}$`)
)

// IsNumeric reports whether a cell looks like a number.
func IsNumeric(v string) bool {
	return reColNumber.MatchString(v)
}

// ClassifyValues picks a column type by majority: 60% for numbers and
// datetimes, 40% for paths since they are distinctive.
func ClassifyValues(values []string) ColumnType {
	num, date, path, total := 0, 0, 0, 0
	for _, v := range values {
		if v == "" || v == "-" || v == "<none>" {
			continue
		}
		total++
		switch {
		case reColNumber.MatchString(v):
			num++
		case reColDateTime.MatchString(v):
			date++
		case reColPath.MatchString(v):
			path++
		}
	}
	switch {
	case total == 0:
		return ColText
	case num*100/total >= 60:
		return ColNumber
	case date*100/total >= 60:
		return ColDateTime
	case path*100/total >= 40:
		return ColPath
	}
	return ColText
}

// ClassifyColumns classifies every column of t, skipping the header row.
func ClassifyColumns(t *Table) []ColumnType {
	types := make([]ColumnType, t.Columns())
	for ci := range types {
		var values []string
		for ri, row := range t.Rows {
			if ri == t.Header || ci >= len(row) {
				continue
			}
			values = append(values, row[ci])
		}
		types[ci] = ClassifyValues(values)
	}
	return types
}

// AlignNumeric right-aligns columns classified as numbers. Alignments set
// explicitly (anything but AlignLeft) are kept.
func AlignNumeric(t *Table) {
	for ci, ct := range ClassifyColumns(t) {
		if ct == ColNumber && t.Align[ci] == AlignLeft {
			t.Align[ci] = AlignRight
		}
	}
}
