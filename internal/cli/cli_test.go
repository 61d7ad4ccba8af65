// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/framegrace/prettify/prettifier"
	"github.com/framegrace/prettify/prettifier/types"
)

var markdownInput = "# Title\n\nSome **bold** text.\n"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "prettify-cli")
	if err != nil {
		panic(err)
	}
	os.Setenv("XDG_CONFIG_HOME", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// execute runs the root command with a private config file and plain
// output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	flagFormat, flagCommand, detectCommand = "", "", ""
	flagWidth, flagNoColor = 0, false
	flagAllowNetwork, flagAllowCommands = false, false

	cfgPath := filepath.Join(t.TempDir(), "prettify.json")
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--no-color", "--width", "60"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// ─── Input handling ──────────────────────────────────────────────────────────

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"\x1b[31mred\x1b[0m text", "red text"},
		{"progress 10%\rprogress 100%", "progress 100%"},
		{"dos line\r", "dos line"},
	}
	for _, tt := range tests {
		if got := cleanLine(tt.in); got != tt.want {
			t.Errorf("cleanLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadInputs_Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("one\ntwo\n"), 0o644)
	os.WriteFile(b, []byte("three"), 0o644)

	lines, err := readInputs(strings.NewReader("stdin"), []string{a, "-", b})
	if err != nil {
		t.Fatalf("readInputs: %v", err)
	}
	want := []string{"one", "two", "stdin", "three"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", lines, want)
	}
	if _, err := readInputs(nil, []string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("missing file should fail")
	}
}

// ─── Composition ─────────────────────────────────────────────────────────────

func TestCompose_ReplacesBlocksInPlace(t *testing.T) {
	p, err := prettifier.Build(nil, types.DefaultRendererConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()

	src := []string{"plain words", "", "", "# Title", "", "Some **bold** text.", "", "", "tail"}
	feed(p, src, "")
	doc := compose(p, src)

	if len(doc) != len(src) {
		t.Fatalf("doc has %d lines, want %d", len(doc), len(src))
	}
	if doc[0].inBlock || doc[0].line.PlainText() != "plain words" {
		t.Errorf("doc[0] = %+v", doc[0])
	}
	if !doc[3].inBlock || doc[3].line.PlainText() != "Title" || doc[3].offset != 0 {
		t.Errorf("doc[3] = %+v", doc[3])
	}
	if got := doc[5].line.PlainText(); got != "Some bold text." {
		t.Errorf("doc[5] = %q", got)
	}
	if last := doc[len(doc)-1]; last.inBlock || last.line.PlainText() != "tail" {
		t.Errorf("last = %+v", last)
	}

	b := p.BlockAt(3)
	p.ToggleBlock(b.ID)
	if got := compose(p, src)[3].line.PlainText(); got != "# Title" {
		t.Errorf("source view shows %q", got)
	}
}

// ─── Commands ────────────────────────────────────────────────────────────────

func TestRootCommand_RendersMarkdown(t *testing.T) {
	out, err := execute(t, markdownInput)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out, "# Title") || !strings.Contains(out, "Title") {
		t.Errorf("header not rendered:\n%s", out)
	}
	if !strings.Contains(out, "Some bold text.") {
		t.Errorf("bold not rendered:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("--no-color output contains escape sequences")
	}
}

func TestRootCommand_FormatNoneKeepsSource(t *testing.T) {
	out, err := execute(t, markdownInput, "--format", "none")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != markdownInput {
		t.Errorf("output = %q, want the input unchanged", out)
	}
}

func TestRootCommand_UnknownFormatSuggests(t *testing.T) {
	_, err := execute(t, "{}", "--format", "jsn")
	if err == nil || !strings.Contains(err.Error(), "did you mean json") {
		t.Fatalf("err = %v", err)
	}
}

func TestDetectCommand(t *testing.T) {
	out, err := execute(t, "{\n  \"name\": \"prettify\",\n  \"tags\": [1, 2]\n}\n", "detect")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "detected: json") {
		t.Errorf("detect output:\n%s", out)
	}
	if !strings.Contains(out, "json_open_brace") {
		t.Errorf("matched rules missing:\n%s", out)
	}
}

func TestFormatsCommand(t *testing.T) {
	out, err := execute(t, "", "formats")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, id := range []string{"markdown", "json", "diagrams", "stack_trace"} {
		if !strings.Contains(out, id) {
			t.Errorf("formats output lacks %s:\n%s", id, out)
		}
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "", "schema")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"prettifier"`) {
		t.Errorf("schema lacks the prettifier section:\n%.200s", out)
	}
}

// ─── Exit codes ──────────────────────────────────────────────────────────────

func TestExitCode(t *testing.T) {
	if exitCode(errors.New("plain")) != 1 {
		t.Error("plain errors exit 1")
	}
	err := &exitError{code: 3, err: &exec.ExitError{}}
	if exitCode(err) != 3 {
		t.Errorf("exit code = %d", exitCode(err))
	}
}
