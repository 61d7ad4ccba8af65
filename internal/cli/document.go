// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/framegrace/prettify/prettifier/pipeline"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

// docLine is one display row of a composed document.
type docLine struct {
	line    types.StyledLine
	inBlock bool
	blockID uint64
	// offset is the row within the block's display lines.
	offset int
}

// readLines splits r into lines, dropping escape sequences and carriage
// returns so detection sees the text the user saw.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	for sc.Scan() {
		lines = append(lines, cleanLine(sc.Text()))
	}
	return lines, sc.Err()
}

func cleanLine(s string) string {
	s = ansi.Strip(s)
	if i := strings.LastIndexByte(s, '\r'); i >= 0 && i < len(s)-1 {
		// A bare CR redraws the line; keep what was drawn last.
		s = s[i+1:]
	}
	return strings.TrimRight(s, "\r")
}

// feed streams lines through the boundary detector as a terminal would,
// inside one command window when command is set.
func feed(p *pipeline.Pipeline, lines []string, command string) {
	if command != "" {
		p.OnCommandStart(command)
	}
	for i, ln := range lines {
		p.ProcessOutput(ln, i)
	}
	if command != "" {
		p.OnCommandEnd()
	}
	p.Flush()
}

// settle waits for background renders to finish and applies them.
func settle(ctx context.Context, p *pipeline.Pipeline) {
	for hasPending(p) {
		select {
		case <-p.Notify():
			p.ApplyCompletions()
		case <-ctx.Done():
			return
		}
	}
}

func hasPending(p *pipeline.Pipeline) bool {
	for _, b := range p.Blocks() {
		if b.Pending() {
			return true
		}
	}
	return false
}

// compose lays out src with every detected block replaced by its display
// lines.
func compose(p *pipeline.Pipeline, src []string) []docLine {
	out := make([]docLine, 0, len(src))
	for row := 0; row < len(src); {
		b := p.BlockAt(row)
		if b == nil || b.Rows().Start != row {
			out = append(out, docLine{line: types.PlainLine(src[row])})
			row++
			continue
		}
		for i, ln := range b.Buffer.DisplayLines() {
			out = append(out, docLine{line: ln, inBlock: true, blockID: b.ID, offset: i})
		}
		row = max(b.Rows().End, row+1)
	}
	return out
}

// writeDocument prints doc, styled unless color is false.
func writeDocument(w io.Writer, doc []docLine, color bool) error {
	bw := bufio.NewWriter(w)
	for _, d := range doc {
		if _, err := fmt.Fprintln(bw, render.EncodeANSI(d.line, color)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
