// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/framegrace/prettify/prettifier/pipeline"
	"github.com/framegrace/prettify/prettifier/types"
)

var (
	flagFormat  string
	flagCommand string
)

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagFormat, "format", "f", "", "render everything as this format, skipping detection")
	f.StringVarP(&flagCommand, "command", "c", "", "command that produced the input, used as a detection hint")
}

func runRender(cmd *cobra.Command, args []string) error {
	lines, err := readInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	p, _, err := newPipeline(outputWidth(int(os.Stdout.Fd())))
	if err != nil {
		return err
	}
	defer p.Close()

	if flagFormat != "" {
		if err := forceFormat(p, flagFormat, lines); err != nil {
			return err
		}
	} else {
		feed(p, lines, flagCommand)
	}
	settle(cmd.Context(), p)
	logger.Debug("rendered", "lines", len(lines), "blocks", p.Len())
	return writeDocument(cmd.OutOrStdout(), compose(p, lines), !flagNoColor)
}

// readInputs concatenates the named files, or reads stdin when there are
// none or the name is "-".
func readInputs(stdin io.Reader, names []string) ([]string, error) {
	if len(names) == 0 {
		return readLines(stdin)
	}
	var all []string
	for _, name := range names {
		var r io.Reader = stdin
		if name != "-" {
			f, err := os.Open(name)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		lines, err := readLines(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		all = append(all, lines...)
	}
	return all, nil
}

// forceFormat renders lines as one block of formatID.
func forceFormat(p *pipeline.Pipeline, formatID string, lines []string) error {
	if _, ok := p.Registry().Renderer(formatID); !ok && formatID != pipeline.SuppressFormat {
		return unknownFormat(p, formatID)
	}
	if len(lines) == 0 {
		return nil
	}
	if _, ok := p.TriggerPrettify(formatID, types.NewBlock(lines, flagCommand, 0)); !ok && formatID != pipeline.SuppressFormat {
		return fmt.Errorf("could not render as %s", formatID)
	}
	return nil
}

// unknownFormat builds an error that suggests the closest format ids.
func unknownFormat(p *pipeline.Pipeline, formatID string) error {
	var ids []string
	for _, f := range p.Registry().Formats() {
		ids = append(ids, f.ID)
	}
	matches := fuzzy.Find(formatID, ids)
	if len(matches) == 0 {
		return fmt.Errorf("unknown format %q (known: %s)", formatID, strings.Join(ids, ", "))
	}
	var hints []string
	for i, m := range matches {
		if i == 3 {
			break
		}
		hints = append(hints, m.Str)
	}
	return fmt.Errorf("unknown format %q, did you mean %s?", formatID, strings.Join(hints, " or "))
}
