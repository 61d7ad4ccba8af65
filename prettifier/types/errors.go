// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package types

import (
	"errors"
	"fmt"
	"time"
)

// RenderErrorKind classifies render failures. All kinds are recoverable:
// the pipeline falls back to the source text.
type RenderErrorKind int

const (
	RenderFailed RenderErrorKind = iota
	CommandNotFound
	NetworkError
	Timeout
)

// RenderError is returned by renderers.
type RenderError struct {
	Kind    RenderErrorKind
	Reason  string
	Elapsed time.Duration
	Err     error
}

func (e *RenderError) Error() string {
	switch e.Kind {
	case CommandNotFound:
		return fmt.Sprintf("command not found: %s", e.Reason)
	case NetworkError:
		return fmt.Sprintf("network error: %s", e.Reason)
	case Timeout:
		return fmt.Sprintf("render timed out after %dms", e.Elapsed.Milliseconds())
	default:
		return fmt.Sprintf("render failed: %s", e.Reason)
	}
}

func (e *RenderError) Unwrap() error { return e.Err }

// Failed builds a RenderFailed error.
func Failed(format string, args ...any) error {
	return &RenderError{Kind: RenderFailed, Reason: fmt.Sprintf(format, args...)}
}

// FailedWith wraps err as a RenderFailed error.
func FailedWith(reason string, err error) error {
	return &RenderError{Kind: RenderFailed, Reason: fmt.Sprintf("%s: %v", reason, err), Err: err}
}

// ErrCommandNotFound builds a CommandNotFound error.
func ErrCommandNotFound(cmd string) error {
	return &RenderError{Kind: CommandNotFound, Reason: cmd}
}

// ErrNetwork builds a NetworkError.
func ErrNetwork(err error) error {
	return &RenderError{Kind: NetworkError, Reason: err.Error(), Err: err}
}

// ErrTimeout builds a Timeout error.
func ErrTimeout(after time.Duration) error {
	return &RenderError{Kind: Timeout, Elapsed: after}
}

// IsRenderKind reports whether err is a RenderError of the given kind.
func IsRenderKind(err error, kind RenderErrorKind) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Kind == kind
}
