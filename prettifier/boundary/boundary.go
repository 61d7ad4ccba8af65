// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package boundary splits the live terminal output stream into discrete
// content blocks. It is driven entirely by the caller: lines, shell
// lifecycle events and idle ticks go in, blocks come out. It never starts
// goroutines or timers of its own.
package boundary

import (
	"strings"
	"time"

	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/types"
)

var logger = logging.For("BOUNDARY")

// Scope selects which output is eligible for detection.
type Scope int

const (
	// ScopeCommandOutput only accumulates between command start and end.
	ScopeCommandOutput Scope = iota
	// ScopeAll accumulates everything and splits on blank-line runs.
	ScopeAll
	// ScopeManualOnly accumulates but only emits on explicit flush.
	ScopeManualOnly
)

// ParseScope maps a config string to a Scope. Unknown values yield ScopeAll.
func ParseScope(s string) Scope {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "command_output":
		return ScopeCommandOutput
	case "manual_only", "manual":
		return ScopeManualOnly
	default:
		return ScopeAll
	}
}

func (s Scope) String() string {
	switch s {
	case ScopeCommandOutput:
		return "command_output"
	case ScopeManualOnly:
		return "manual_only"
	default:
		return "all"
	}
}

// Config tunes the detector.
type Config struct {
	Scope              Scope
	MaxScanLines       int
	Debounce           time.Duration
	BlankLineThreshold int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Scope:              ScopeAll,
		MaxScanLines:       500,
		Debounce:           100 * time.Millisecond,
		BlankLineThreshold: 2,
	}
}

// Detector is the boundary state machine.
type Detector struct {
	cfg Config
	now func() time.Time

	lines      []string
	command    string
	startRow   int
	nextRow    int
	lastOutput time.Time
	inCommand  bool
	blankRun   int
	inFence    bool
	fenceChar  byte
}

// New creates a detector. Zero or negative limits fall back to the defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.MaxScanLines <= 0 {
		cfg.MaxScanLines = def.MaxScanLines
	}
	if cfg.BlankLineThreshold <= 0 {
		cfg.BlankLineThreshold = def.BlankLineThreshold
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = def.Debounce
	}
	return &Detector{cfg: cfg, now: time.Now}
}

// SetClock overrides the time source used to stamp output. Tests only.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// Config returns the active configuration.
func (d *Detector) Config() Config { return d.cfg }

// Pending returns the number of accumulated lines.
func (d *Detector) Pending() int { return len(d.lines) }

// CurrentCommand returns the command of the open window, if any.
func (d *Detector) CurrentCommand() string { return d.command }

// PushLine appends one output line at the given absolute row.
func (d *Detector) PushLine(line string, row int) *types.ContentBlock {
	if d.cfg.Scope == ScopeCommandOutput && !d.inCommand {
		return nil
	}
	d.lastOutput = d.now()
	blank := strings.TrimSpace(line) == ""

	if d.cfg.Scope == ScopeAll {
		if blank && !d.inFence {
			if len(d.lines) == 0 {
				// Separator rows never open a block.
				d.nextRow = row + 1
				return nil
			}
			d.blankRun++
			if d.blankRun >= d.cfg.BlankLineThreshold {
				logger.Debug("blank-line boundary", "row", row, "blanks", d.blankRun)
				return d.emit()
			}
		} else if !d.inFence {
			d.blankRun = 0
		}
	}

	if !blank {
		d.updateFence(line)
	}
	d.append(line, row)

	if len(d.lines) >= d.cfg.MaxScanLines {
		logger.Debug("max scan lines reached", "row", row, "lines", len(d.lines))
		return d.emit()
	}
	return nil
}

func (d *Detector) append(line string, row int) {
	if len(d.lines) == 0 {
		d.startRow = row
	}
	d.lines = append(d.lines, line)
	d.nextRow = row + 1
}

// OnCommandStart opens a command window. Anything accumulated so far is
// dropped, matching the shell's view that a new command begins fresh output.
func (d *Detector) OnCommandStart(command string) {
	logger.Debug("command start", "command", truncate(command, 80))
	d.command = command
	d.inCommand = true
	d.lines = nil
	d.blankRun = 0
	d.inFence = false
}

// OnCommandEnd closes the window and emits what was accumulated. The block
// may have zero lines; callers discard it.
func (d *Detector) OnCommandEnd() *types.ContentBlock {
	wasOpen := d.inCommand
	d.inCommand = false
	if d.cfg.Scope == ScopeManualOnly {
		return nil
	}
	if b := d.emit(); b != nil {
		return b
	}
	if !wasOpen {
		return nil
	}
	cmd := d.command
	d.command = ""
	return &types.ContentBlock{
		PrecedingCommand: cmd,
		Rows:             types.RowRange{Start: d.nextRow, End: d.nextRow},
		CreatedAt:        d.now(),
	}
}

// OnAltScreenChange emits regardless of scope: output on either side of an
// alternate-screen switch is never one block.
func (d *Detector) OnAltScreenChange(entering bool) *types.ContentBlock {
	logger.Debug("alt screen change", "entering", entering, "pending", len(d.lines))
	return d.emit()
}

// OnProcessChange emits when the foreground process changes.
func (d *Detector) OnProcessChange() *types.ContentBlock {
	if d.cfg.Scope == ScopeManualOnly {
		return nil
	}
	return d.emit()
}

// CheckDebounce emits if no output arrived for the debounce interval.
func (d *Detector) CheckDebounce(now time.Time) *types.ContentBlock {
	if d.cfg.Scope == ScopeManualOnly || len(d.lines) == 0 {
		return nil
	}
	if now.Sub(d.lastOutput) < d.cfg.Debounce {
		return nil
	}
	logger.Debug("debounce fired", "pending", len(d.lines))
	return d.emit()
}

// Flush force-emits in any scope.
func (d *Detector) Flush() *types.ContentBlock {
	return d.emit()
}

// Reset discards all state without emitting.
func (d *Detector) Reset() {
	d.lines = nil
	d.command = ""
	d.startRow = 0
	d.inCommand = false
	d.blankRun = 0
	d.inFence = false
	d.fenceChar = 0
}

func (d *Detector) emit() *types.ContentBlock {
	if len(d.lines) == 0 {
		return nil
	}
	lines := d.lines
	d.lines = nil
	d.blankRun = 0

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}

	cmd := d.command
	d.command = ""
	block := &types.ContentBlock{
		Lines:            lines,
		PrecedingCommand: cmd,
		Rows:             types.RowRange{Start: d.startRow, End: d.startRow + len(lines)},
		CreatedAt:        d.now(),
	}
	logger.Debug("emit block", "rows", block.Rows, "lines", len(lines), "command", truncate(cmd, 40))
	return block
}

// updateFence tracks ``` and ~~~ fences so blank lines inside code blocks do
// not split the block.
func (d *Detector) updateFence(line string) {
	trimmed := strings.TrimSpace(line)
	if d.inFence {
		n := countLeading(trimmed, d.fenceChar)
		if n >= 3 && strings.TrimSpace(trimmed[n:]) == "" {
			d.inFence = false
			d.fenceChar = 0
		}
		return
	}

	var ch byte
	switch {
	case strings.HasPrefix(trimmed, "```"):
		ch = '`'
	case strings.HasPrefix(trimmed, "~~~"):
		ch = '~'
	default:
		return
	}
	rest := strings.TrimSpace(trimmed[countLeading(trimmed, ch):])
	if isFenceInfo(rest) {
		d.inFence = true
		d.fenceChar = ch
	}
}

func countLeading(s string, ch byte) int {
	n := 0
	for n < len(s) && s[n] == ch {
		n++
	}
	return n
}

func isFenceInfo(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '+':
		default:
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
