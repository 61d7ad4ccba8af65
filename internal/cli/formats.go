// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/prettifier"
	"github.com/framegrace/prettify/prettifier/gutter"
	"github.com/framegrace/prettify/prettifier/types"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the formats and whether they are enabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		s, err := config.SettingsOf(cfg)
		if err != nil {
			return err
		}
		reg, regErr := prettifier.NewRegistry(s)
		defer reg.Close()
		if regErr != nil {
			logger.Warn("some prettifier settings were ignored", "err", regErr)
		}

		host := hostConfig(cfg, 80)
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("", "ID", "NAME", "STATUS", "NEEDS").
			StyleFunc(func(row, col int) lipgloss.Style {
				st := lipgloss.NewStyle().Padding(0, 1)
				if row == table.HeaderRow {
					return st.Bold(true)
				}
				return st
			})
		for _, f := range reg.Formats() {
			rend, _ := reg.Renderer(f.ID)
			status := "enabled"
			var needs []string
			for _, c := range rend.Capabilities() {
				if c == types.CapTextStyling {
					continue
				}
				needs = append(needs, c.String())
				if !host.Allows(c) {
					status = "needs grant"
				}
			}
			t.Row(gutter.BadgeFor(f.ID), f.ID, f.DisplayName, status, strings.Join(needs, ", "))
		}
		var disabled []string
		for id, rs := range s.Renderers {
			if !rs.Enabled {
				disabled = append(disabled, id)
			}
		}
		sort.Strings(disabled)
		for _, id := range disabled {
			t.Row(gutter.BadgeFor(id), id, "", "disabled", "")
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
