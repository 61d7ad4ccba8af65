// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/cli/root.go
// Summary: Root command and flags shared by every subcommand.
//
// Package cli implements the prettify command line: one-shot rendering of
// files and command output, an interactive viewer, and diagnostics.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/internal/theming"
	"github.com/framegrace/prettify/prettifier"
	"github.com/framegrace/prettify/prettifier/pipeline"
	"github.com/framegrace/prettify/prettifier/types"
)

var logger = logging.For("CLI")

// flags shared by every subcommand
var (
	flagConfig        string
	flagLogLevel      string
	flagWidth         int
	flagNoColor       bool
	flagAllowNetwork  bool
	flagAllowCommands bool
)

var rootCmd = &cobra.Command{
	Use:   "prettify [file...]",
	Short: "prettify – render structured terminal output",
	Long: "prettify detects Markdown, JSON, YAML, diffs, logs, tables and more in text\n" +
		"and prints a rendered version. With no files it reads standard input.",
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagLogLevel != "" {
			logging.SetLevel(flagLogLevel)
		}
		if flagConfig != "" {
			if err := config.UsePath(flagConfig); err != nil {
				return fmt.Errorf("config %s: %w", flagConfig, err)
			}
		}
		return nil
	},
	RunE:          runRender,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (json, yaml or toml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error")
	pf.IntVarP(&flagWidth, "width", "w", 0, "render width in columns (default: terminal width)")
	pf.BoolVar(&flagNoColor, "no-color", false, "print text without styling")
	pf.BoolVar(&flagAllowNetwork, "allow-network", false, "let renderers reach the network (Kroki diagrams)")
	pf.BoolVar(&flagAllowCommands, "allow-commands", false, "let renderers run external commands")
}

// Execute runs the CLI. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "prettify:", err)
		os.Exit(exitCode(err))
	}
}

// loadConfig returns the active config. A broken file is reported and the
// defaults are used instead.
func loadConfig() config.Config {
	cfg := config.System()
	if err := config.Err(); err != nil {
		logger.Warn("config not loaded, using defaults", "err", err)
	}
	return cfg
}

// hostConfig describes what this process can offer renderers.
func hostConfig(cfg config.Config, width int) types.RendererConfig {
	rc := types.DefaultRendererConfig()
	rc.TerminalWidth = width
	rc.Theme = theming.FromConfig(cfg)
	if flagAllowNetwork {
		rc.Granted = append(rc.Granted, types.CapNetworkAccess)
	}
	if flagAllowCommands {
		rc.Granted = append(rc.Granted, types.CapExternalCommand)
	}
	return rc
}

// outputWidth is the --width flag, else the width of the terminal on fd,
// else 80.
func outputWidth(fd int) int {
	if flagWidth > 0 {
		return flagWidth
	}
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// newPipeline builds a pipeline for the active config. Partial config
// errors are logged; the pipeline still carries everything that loaded.
func newPipeline(width int) (*pipeline.Pipeline, config.Config, error) {
	cfg := loadConfig()
	p, err := prettifier.Build(cfg, hostConfig(cfg, width))
	if p == nil {
		return nil, nil, err
	}
	if err != nil {
		logger.Warn("some prettifier settings were ignored", "err", err)
	}
	if flagLogLevel != "" {
		// The command line wins over log_level in the config file.
		logging.SetLevel(flagLogLevel)
	}
	return p, cfg, nil
}
