// errors.go - Typed error taxonomy for the launch pipeline.
// Copyright (C) 2026  igo95862.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package bjerrors provides typed error handling for the bubblejail launch
// pipeline. Every failure that crosses a component boundary is classified
// into one of the Kind values so callers can branch on category instead of
// string-matching messages, while still supporting errors.Is/errors.As.
package bjerrors

import (
	"errors"
	"fmt"
)

// Kind represents the category of an error, mirroring the taxonomy used
// throughout the launch pipeline and the in-sandbox helper.
type Kind int

const (
	// Configuration indicates malformed services.toml, an unknown service
	// key, a conflict between enabled services, or a missing required
	// setting.
	Configuration Kind = iota
	// Dependency indicates a required external binary was not found.
	Dependency
	// Initialization indicates a readiness pipe timeout, a D-Bus proxy
	// exit during startup, a namespace-entry failure, or a seccomp
	// compile failure.
	Initialization
	// Run indicates the mount helper exited with a non-zero status.
	Run
	// Rpc indicates an unreadable JSON-RPC request, an unknown method,
	// or a timeout waiting on a response.
	Rpc
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration error"
	case Dependency:
		return "dependency error"
	case Initialization:
		return "initialization error"
	case Run:
		return "run error"
	case Rpc:
		return "rpc error"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type produced by every package in this
// module. Instance carries the instance name when the failure is scoped to
// one, and is empty for errors raised before an instance is known (e.g.
// during services.toml structuring for a standalone container).
type Error struct {
	Op       string
	Instance string
	Kind     Kind
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Instance != "" {
		msg = fmt.Sprintf("instance %s: ", e.Instance)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a *Error with the same Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a bare *Error with no wrapped cause.
func New(kind Kind, op, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// Wrap attaches an operation and kind to an underlying error.
func Wrap(err error, kind Kind, op string) *Error {
	return &Error{Op: op, Err: err, Kind: kind}
}

// WrapWithInstance wraps an error with the owning instance name.
func WrapWithInstance(err error, kind Kind, op, instance string) *Error {
	return &Error{Op: op, Instance: instance, Err: err, Kind: kind}
}

// WrapWithDetail wraps an error with additional human-readable detail.
func WrapWithDetail(err error, kind Kind, op, detail string) *Error {
	return &Error{Op: op, Err: err, Kind: kind, Detail: detail}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the Kind of err if it is (or wraps) a *Error.
func GetKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Re-exported for convenience so callers need only import this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
