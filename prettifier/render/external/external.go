// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/render/external/external.go
// Summary: Renderer that pipes blocks through a user-configured command.
//
// The block text is written to the command's stdin and its stdout is decoded
// as ANSI-coloured text. With UsePty the output side is a pseudo terminal,
// so tools that only colour when attached to a tty keep their colours.

package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

// maxOutput caps what a command may print for one block.
const maxOutput = 8 << 20

type Options struct {
	ID      string
	Name    string
	Command string
	Args    []string
	UsePty  bool
}

// Renderer runs one configured command. It implements types.AsyncRenderer.
type Renderer struct {
	opts  Options
	badge string
}

func New(opts Options) *Renderer {
	if opts.Name == "" {
		opts.Name = opts.ID
	}
	badge := strings.ToUpper(opts.ID)
	if len(badge) > 3 {
		badge = badge[:3]
	}
	if badge == "" {
		badge = "EXT"
	}
	return &Renderer{opts: opts, badge: badge}
}

func (r *Renderer) FormatID() string    { return r.opts.ID }
func (r *Renderer) DisplayName() string { return r.opts.Name }
func (r *Renderer) Badge() string       { return r.badge }

func (r *Renderer) Capabilities() []types.Capability {
	return []types.Capability{types.CapTextStyling, types.CapExternalCommand}
}

// Placeholder shows the source until the command finishes.
func (r *Renderer) Placeholder(block types.ContentBlock, cfg types.RendererConfig) types.RenderedContent {
	rc := render.Source(block)
	rc.Badge = r.badge
	return rc
}

func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return r.RenderContext(ctx, block, cfg)
}

func (r *Renderer) RenderContext(ctx context.Context, block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	if !cfg.CommandAllowed(r.opts.Command) {
		return types.RenderedContent{}, types.Failed("%s is not in allowed_commands", r.opts.Command)
	}
	path, err := exec.LookPath(r.opts.Command)
	if err != nil {
		return types.RenderedContent{}, types.ErrCommandNotFound(r.opts.Command)
	}

	started := time.Now()
	input := block.FullText() + "\n"
	var out []byte
	if r.opts.UsePty {
		out, err = runPty(ctx, path, r.opts.Args, input, cfg.Width())
	} else {
		out, err = runPipe(ctx, path, r.opts.Args, input, cfg.Width())
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return types.RenderedContent{}, types.ErrTimeout(time.Since(started))
		}
		return types.RenderedContent{}, types.FailedWith(r.opts.Command+" cancelled", ctx.Err())
	}
	if err != nil {
		logging.For("EXTERNAL").Debug("command failed", "id", r.opts.ID, "cmd", r.opts.Command, "err", err)
		return types.RenderedContent{}, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return types.RenderedContent{}, types.Failed("%s produced no output", r.opts.Command)
	}

	rc := types.RenderedContent{Badge: r.badge}
	for i, ln := range render.DecodeANSI(string(out)) {
		src := -1
		if i < len(block.Lines) {
			src = i
		}
		rc.Push(ln, src)
	}
	return rc, nil
}

func commandEnv(width int) []string {
	return append(os.Environ(),
		fmt.Sprintf("COLUMNS=%d", width),
		"TERM=xterm-256color",
	)
}

func runPipe(ctx context.Context, path string, args []string, input string, width int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = commandEnv(width)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedBuffer{buf: &stdout}
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		return nil, exitError(path, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// runPty gives the command a pseudo terminal for stdout and stderr while
// stdin stays a pipe, so the input is never echoed into the output.
func runPty(ctx context.Context, path string, args []string, input string, width int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = commandEnv(width)
	cmd.Stdin = strings.NewReader(input)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 50, Cols: uint16(width)})
	if err != nil {
		return nil, types.FailedWith("start pty", err)
	}
	defer ptmx.Close()
	if _, err := term.MakeRaw(int(ptmx.Fd())); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, types.FailedWith("make pty raw", err)
	}

	var out bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Reads end with EIO once the child side closes.
		io.Copy(&limitedBuffer{buf: &out}, ptmx)
	}()

	waitErr := cmd.Wait()
	select {
	case <-done:
	case <-ctx.Done():
		ptmx.Close()
		<-done
	case <-time.After(time.Second):
		// A grandchild still holds the terminal.
		ptmx.Close()
		<-done
	}
	if waitErr != nil {
		return nil, exitError(path, waitErr, lastLine(out.String()))
	}
	return out.Bytes(), nil
}

func exitError(path string, err error, detail string) error {
	detail = strings.TrimSpace(detail)
	var exit *exec.ExitError
	if errors.As(err, &exit) && detail != "" {
		return types.Failed("%s exited with %d: %s", path, exit.ExitCode(), firstLine(detail))
	}
	return types.FailedWith(path, err)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// limitedBuffer drops output past maxOutput instead of failing the writer.
type limitedBuffer struct {
	buf *bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := maxOutput - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}
