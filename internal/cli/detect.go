// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/types"
)

var detectCommand string

var detectCmd = &cobra.Command{
	Use:   "detect [file...]",
	Short: "Explain how the input scores against every detector",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := readInputs(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		p, _, err := newPipeline(outputWidth(int(os.Stdout.Fd())))
		if err != nil {
			return err
		}
		defer p.Close()

		block := types.NewBlock(lines, detectCommand, 0)
		reg := p.Registry()
		cands := reg.Explain(block)
		fmt.Fprintln(cmd.OutOrStdout(), explainTable(cands, reg.ConfidenceThreshold()))
		if res := reg.Detect(block); res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "detected: %s (%.2f)\n", res.FormatID, res.Confidence)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "detected: nothing")
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectCommand, "command", "c", "", "command that produced the input")
	rootCmd.AddCommand(detectCmd)
}

// explainTable lists candidates, best first.
func explainTable(cands []registry.Candidate, threshold float64) string {
	sort.SliceStable(cands, func(i, j int) bool {
		return confidence(cands[i]) > confidence(cands[j])
	})
	pass := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("FORMAT", "PRIORITY", "QUICK", "CONFIDENCE", "RULES").
		StyleFunc(func(row, col int) lipgloss.Style {
			st := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return st.Bold(true)
			}
			if row >= 0 && row < len(cands) && confidence(cands[row]) >= threshold && cands[row].QuickMatch {
				return st.Inherit(pass)
			}
			return st
		})
	for _, c := range cands {
		conf, rules := "-", ""
		if c.Result != nil {
			conf = fmt.Sprintf("%.2f", c.Result.Confidence)
			rules = strings.Join(c.Result.MatchedRules, ", ")
		}
		t.Row(c.FormatID, fmt.Sprint(c.Priority), yesNo(c.QuickMatch), conf, rules)
	}
	return t.String()
}

func confidence(c registry.Candidate) float64 {
	if c.Result == nil {
		return -1
	}
	return c.Result.Confidence
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
