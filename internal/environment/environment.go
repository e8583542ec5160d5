// environment.go - Environment snapshot.
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

// Package environment captures the caller's environment as an explicit
// value, so that services and the runner never read os.Getenv ad hoc
// during argument generation.
package environment

import (
	"os"
	"strings"
)

// Snapshot is an immutable view of the environment the runner was launched
// with, plus the resolved XDG paths a service may need.
type Snapshot struct {
	vars map[string]string

	XDGRuntimeDir string
	XDGDataHome   string
	XDGConfigHome string
}

// New builds a Snapshot directly from vars, bypassing os.Environ(). Used by
// tests and any caller that already has an explicit environment map rather
// than the running process's own.
func New(vars map[string]string) *Snapshot {
	cp := make(map[string]string, len(vars))
	for k, v := range vars {
		cp[k] = v
	}
	s := &Snapshot{vars: cp}
	s.XDGRuntimeDir = cp["XDG_RUNTIME_DIR"]
	s.XDGDataHome = cp["XDG_DATA_HOME"]
	s.XDGConfigHome = cp["XDG_CONFIG_HOME"]
	return s
}

// FromOS captures the current process environment.
func FromOS() *Snapshot {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			vars[kv[:i]] = kv[i+1:]
		}
	}
	s := &Snapshot{vars: vars}
	s.XDGRuntimeDir = vars["XDG_RUNTIME_DIR"]
	s.XDGDataHome = vars["XDG_DATA_HOME"]
	s.XDGConfigHome = vars["XDG_CONFIG_HOME"]
	return s
}

// Get returns the value of name and whether it was present.
func (s *Snapshot) Get(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// GetOrDefault returns the value of name, or def if unset.
func (s *Snapshot) GetOrDefault(name, def string) string {
	if v, ok := s.vars[name]; ok {
		return v
	}
	return def
}
