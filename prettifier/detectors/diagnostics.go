// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package detectors

import "github.com/framegrace/prettify/prettifier/detect"

// NewDiff detects unified and git diffs. Any of the headers is conclusive.
func NewDiff() *detect.RegexDetector {
	return detect.NewBuilder(Diff, "Diff").
		Threshold(0.6).
		MinMatchingRules(1).
		DefinitiveShortCircuit(true).
		Rules(
			rule("diff_git_header", `^diff --git\s+`, 0.9, first(5), definitive, "diff --git header at start of output"),
			rule("diff_unified_header", `^---\s+\S+.*\n\+\+\+\s+\S+`, 0.9, fullText, definitive, "Unified diff --- / +++ file header pair"),
			rule("diff_hunk", `^@@\s+-\d+,?\d*\s+\+\d+,?\d*\s+@@`, 0.8, anyLine, definitive, "@@ hunk header with line ranges"),
			rule("diff_add_line", `^\+[^+]`, 0.1, anyLine, supporting, "Added line starting with +"),
			rule("diff_remove_line", `^-[^-]`, 0.1, anyLine, supporting, "Removed line starting with -"),
			rule("diff_git_context", `^git\s+(diff|log|show)`, 0.3, command, supporting, "Preceding command is git diff/log/show"),
		).
		Build()
}

// NewLog detects application logs. Short-circuit is off: every log line
// looks alike, so two signals are required.
func NewLog() *detect.RegexDetector {
	return detect.NewBuilder(Log, "Log Output").
		Threshold(0.5).
		MinMatchingRules(2).
		DefinitiveShortCircuit(false).
		Rules(
			rule("log_timestamp_level", `^\d{4}[-/]\d{2}[-/]\d{2}[T ]\d{2}:\d{2}:\d{2}.*?(TRACE|DEBUG|INFO|WARN|ERROR|FATAL)`, 0.7, anyLine, strong, "Timestamp followed by log level keyword"),
			rule("log_level_prefix", `^\s*\[?(TRACE|DEBUG|INFO|WARN|ERROR|FATAL)\]?\s`, 0.5, anyLine, strong, "Log level keyword at start of line"),
			rule("log_iso_timestamp", `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`, 0.3, anyLine, supporting, "ISO 8601 timestamp at start of line"),
			rule("log_syslog", `^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d+\s+\d{2}:\d{2}:\d{2}`, 0.4, anyLine, strong, "Syslog-format timestamp (e.g. Jan 15 10:30:00)"),
			rule("log_json_line", `^\{"(timestamp|time|ts|level|msg|message)":`, 0.6, anyLine, strong, "JSON structured log line with known keys"),
			rule("log_tail_context", `^(tail|journalctl|kubectl\s+logs|docker\s+logs)\b`, 0.3, command, supporting, "Preceding command streams logs"),
		).
		Build()
}

// NewStackTrace detects stack traces from the JVM, Python, Rust, Node.js and
// Go, plus generic error headers.
func NewStackTrace() *detect.RegexDetector {
	return detect.NewBuilder(StackTrace, "Stack Trace").
		Threshold(0.6).
		MinMatchingRules(2).
		DefinitiveShortCircuit(true).
		Rules(
			rule("stacktrace_java", `^\s+at\s+[\w.$]+\([\w.]+:\d+\)`, 0.7, anyLine, definitive, "Java/JVM stack frame: at package.Class(File.java:N)"),
			rule("stacktrace_python_header", `^Traceback \(most recent call last\):`, 0.9, anyLine, definitive, "Python traceback header"),
			rule("stacktrace_python_frame", `^\s+File ".*", line \d+`, 0.6, anyLine, strong, `Python stack frame: File "...", line N`),
			rule("stacktrace_rust_panic", `^thread '.*' panicked at`, 0.9, anyLine, definitive, "Rust panic header: thread '...' panicked at"),
			rule("stacktrace_js", `^\s+at\s+\S+\s+\(.*:\d+:\d+\)`, 0.6, anyLine, strong, "JavaScript/Node.js stack frame: at Fn (file:N:N)"),
			rule("stacktrace_generic_error", `^(\w+Error|Exception|Caused by):`, 0.4, anyLine, strong, "Generic error/exception header (XxxError:, Caused by:)"),
			rule("stacktrace_go_panic", `^goroutine \d+ \[`, 0.8, anyLine, definitive, "Go panic header: goroutine N [status]"),
		).
		Build()
}

// NewSQLResults detects result grids printed by psql, mysql and sqlite3.
func NewSQLResults() *detect.RegexDetector {
	return detect.NewBuilder(SQLResults, "SQL Results").
		Threshold(0.6).
		MinMatchingRules(2).
		Rules(
			rule("sql_mysql_border", `^\+(-+\+)+\s*$`, 0.5, anyLine, strong, "MySQL-style +----+ border"),
			rule("sql_psql_separator", `^\s*-+(\+-+)+\s*$`, 0.5, anyLine, strong, "psql ----+---- header separator"),
			rule("sql_pipe_row", `^\|.*\|.*\|\s*$`, 0.1, anyLine, supporting, "Pipe-delimited result row"),
			rule("sql_row_count", `^\(\d+ rows?\)\s*$`, 0.3, last(3), supporting, "psql (N rows) footer"),
			rule("sql_mysql_footer", `^\d+ rows? in set`, 0.4, last(3), supporting, "MySQL N rows in set footer"),
			rule("sql_client_context", `^(psql|mysql|mariadb|sqlite3|pgcli|mycli|duckdb)\b`, 0.3, command, supporting, "Preceding command is a SQL client"),
		).
		Build()
}
