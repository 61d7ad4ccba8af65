// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package diagram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/framegrace/prettify/prettifier/types"
)

// Engine selects which backends are tried.
type Engine string

const (
	EngineAuto  Engine = "auto"
	EngineLocal Engine = "local"
	EngineKroki Engine = "kroki"
	EngineText  Engine = "text_fallback"
)

// ParseEngine maps a config value to an engine. Unknown values mean auto.
func ParseEngine(s string) Engine {
	switch Engine(strings.ToLower(strings.TrimSpace(s))) {
	case EngineLocal:
		return EngineLocal
	case EngineKroki:
		return EngineKroki
	case EngineText, "text", "none":
		return EngineText
	}
	return EngineAuto
}

// DefaultKrokiServer is used when kroki_server is not configured.
const DefaultKrokiServer = "https://kroki.io"

// maxImageBytes bounds what a backend may hand back.
const maxImageBytes = 16 << 20

// Backend turns diagram source into PNG bytes.
type Backend interface {
	Name() string
	// Available reports whether the backend can serve lang under cfg.
	Available(lang Language, cfg types.RendererConfig) bool
	Render(ctx context.Context, lang Language, source string) ([]byte, error)
}

// Local runs the language's CLI tool.
type Local struct{}

func (Local) Name() string { return "local" }

func (Local) Available(lang Language, cfg types.RendererConfig) bool {
	return lang.Command != "" && cfg.Allows(types.CapExternalCommand) && cfg.CommandAllowed(lang.Command)
}

func (Local) Render(ctx context.Context, lang Language, source string) ([]byte, error) {
	path, err := exec.LookPath(lang.Command)
	if err != nil {
		return nil, types.ErrCommandNotFound(lang.Command)
	}

	args := append([]string(nil), lang.Args...)
	var inFile, outFile string
	for i, a := range args {
		if a != stdinPath && a != stdoutPath {
			continue
		}
		if inFile == "" {
			dir, err := os.MkdirTemp("", "prettify-diagram-")
			if err != nil {
				return nil, types.FailedWith("temp dir", err)
			}
			defer os.RemoveAll(dir)
			inFile = filepath.Join(dir, "input.txt")
			outFile = filepath.Join(dir, "output.png")
			if err := os.WriteFile(inFile, []byte(source), 0o600); err != nil {
				return nil, types.FailedWith("write diagram source", err)
			}
		}
		if a == stdinPath {
			args[i] = inFile
		} else {
			args[i] = outFile
		}
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if inFile == "" {
		cmd.Stdin = strings.NewReader(source)
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, types.Failed("%s: %s", lang.Command, firstLine(msg))
	}

	data := stdout.Bytes()
	if outFile != "" {
		if data, err = os.ReadFile(outFile); err != nil {
			return nil, types.FailedWith(lang.Command+" produced no image", err)
		}
	}
	if len(data) == 0 {
		return nil, types.Failed("%s produced no image", lang.Command)
	}
	return data, nil
}

// Kroki posts the source to a Kroki server.
type Kroki struct {
	Server string
	Client *http.Client
}

func (k Kroki) Name() string { return "kroki" }

func (k Kroki) Available(lang Language, cfg types.RendererConfig) bool {
	return lang.KrokiType != "" && cfg.Allows(types.CapNetworkAccess)
}

func (k Kroki) Render(ctx context.Context, lang Language, source string) ([]byte, error) {
	server := strings.TrimRight(k.Server, "/")
	if server == "" {
		server = DefaultKrokiServer
	}
	url := fmt.Sprintf("%s/%s/png", server, lang.KrokiType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(source))
	if err != nil {
		return nil, types.ErrNetwork(err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "image/png")

	client := k.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.ErrNetwork(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, types.ErrNetwork(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.ErrNetwork(fmt.Errorf("%s: %s %s", url, resp.Status, firstLine(string(body))))
	}
	if len(body) == 0 {
		return nil, types.ErrNetwork(errors.New(url + ": empty response"))
	}
	return body, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
