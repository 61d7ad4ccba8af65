// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package logs

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/prettify/prettifier/types"
)

// Level is a log severity.
type Level int

const (
	LevelNone Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[string]Level{
	"TRACE":    LevelTrace,
	"DEBUG":    LevelDebug,
	"DBG":      LevelDebug,
	"INFO":     LevelInfo,
	"INF":      LevelInfo,
	"WARN":     LevelWarn,
	"WARNING":  LevelWarn,
	"WRN":      LevelWarn,
	"ERROR":    LevelError,
	"ERR":      LevelError,
	"FATAL":    LevelFatal,
	"CRIT":     LevelFatal,
	"CRITICAL": LevelFatal,
	"PANIC":    LevelFatal,
}

// ParseLevel maps a level keyword, in any case, to a Level.
func ParseLevel(s string) Level {
	return levelNames[strings.ToUpper(strings.Trim(s, `"[]`))]
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return ""
	}
}

// Severe reports error and fatal levels.
func (l Level) Severe() bool { return l >= LevelError }

// Style returns the colours used for the level keyword. Fatal also gets a
// darkened red background.
func (l Level) Style(theme types.ThemeColors) (fg, bg tcell.Color, bold bool) {
	bg = tcell.ColorDefault
	switch l {
	case LevelTrace, LevelDebug:
		return theme.DimColor(), bg, false
	case LevelInfo:
		return theme.StringColor(), bg, false
	case LevelWarn:
		return theme.WarningColor(), bg, true
	case LevelFatal:
		return theme.Palette[9], theme.RemovedBGColor(), true
	case LevelError:
		return theme.Palette[9], bg, true
	}
	return tcell.ColorDefault, bg, false
}
