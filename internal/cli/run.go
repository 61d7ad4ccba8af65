// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command and render its output",
	Long: "run starts the command on a pseudo terminal so it behaves as it would\n" +
		"interactively, then renders what it printed. The command line is used as\n" +
		"a detection hint. The exit status of the command is passed through.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		width := outputWidth(int(os.Stdout.Fd()))
		out, runErr := capture(cmd.Context(), args, width)
		lines, err := readLines(bytes.NewReader(out))
		if err != nil {
			return err
		}

		p, _, err := newPipeline(width)
		if err != nil {
			return err
		}
		defer p.Close()
		feed(p, lines, strings.Join(args, " "))
		settle(cmd.Context(), p)
		if err := writeDocument(cmd.OutOrStdout(), compose(p, lines), !flagNoColor); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// exitError carries a child's exit status out of Execute.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) && ee.code > 0 {
		return ee.code
	}
	return 1
}

// capture runs argv on a pty of the given width and returns everything it
// printed. A non-zero exit is returned as *exitError along with the output.
func capture(ctx context.Context, argv []string, width int) ([]byte, error) {
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Env = append(os.Environ(), "COLUMNS="+strconv.Itoa(width))
	ptmx, err := pty.StartWithSize(c, &pty.Winsize{Rows: 50, Cols: uint16(width)})
	if err != nil {
		return nil, err
	}
	defer ptmx.Close()

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		// The read ends with EIO once the child exits.
		io.Copy(&out, ptmx)
	}()
	waitErr := c.Wait()
	select {
	case <-done:
	case <-time.After(time.Second):
		// A background child still holds the terminal.
		ptmx.Close()
		<-done
	}
	logger.Debug("command finished", "argv", argv, "bytes", out.Len(), "err", waitErr)

	var ee *exec.ExitError
	if errors.As(waitErr, &ee) {
		return out.Bytes(), &exitError{code: ee.ExitCode(), err: waitErr}
	}
	return out.Bytes(), waitErr
}
