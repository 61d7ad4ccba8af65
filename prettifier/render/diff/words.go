// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import "unicode"

// maxWordCells caps the LCS table; longer pairs are highlighted as a whole.
const maxWordCells = 200_000

// Tokens splits s into alternating runs of whitespace and non-whitespace.
// Concatenating the result gives s back.
func Tokens(s string) []string {
	var out []string
	start := 0
	prevSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > 0 && space != prevSpace {
			out = append(out, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Changed marks the tokens of a and b that are not part of their longest
// common subsequence. Among equal-length subsequences the leftmost match
// wins. ok is false when the inputs are too large to compare.
func Changed(a, b []string) (aChanged, bChanged []bool, ok bool) {
	aChanged = make([]bool, len(a))
	bChanged = make([]bool, len(b))
	if (len(a)+1)*(len(b)+1) > maxWordCells {
		return aChanged, bChanged, false
	}
	// suffix[i][j] = LCS length of a[i:] and b[j:]
	cols := len(b) + 1
	suffix := make([]int, (len(a)+1)*cols)
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				suffix[i*cols+j] = suffix[(i+1)*cols+j+1] + 1
			} else {
				suffix[i*cols+j] = max(suffix[(i+1)*cols+j], suffix[i*cols+j+1])
			}
		}
	}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case suffix[(i+1)*cols+j] >= suffix[i*cols+j+1]:
			aChanged[i] = true
			i++
		default:
			bChanged[j] = true
			j++
		}
	}
	for ; i < len(a); i++ {
		aChanged[i] = true
	}
	for ; j < len(b); j++ {
		bChanged[j] = true
	}
	return aChanged, bChanged, true
}
