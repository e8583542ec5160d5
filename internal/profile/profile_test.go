// profile_test.go - Profile tests.
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

package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindDesktopEntry(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "firefox.desktop")
	if err := os.WriteFile(existing, []byte("[Desktop Entry]\n"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	missing := filepath.Join(dir, "missing.desktop")

	cases := []struct {
		name  string
		paths []string
		want  string
	}{
		{"first missing, second exists", []string{missing, existing}, existing},
		{"none exist", []string{missing}, ""},
		{"empty", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(tc.paths, false, nil)
			if got := p.FindDesktopEntry(); got != tc.want {
				t.Fatalf("FindDesktopEntry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	p := New(nil, true, nil)
	if p.Description != "No description" {
		t.Fatalf("Description = %q", p.Description)
	}
	if p.ImportTips != "None" {
		t.Fatalf("ImportTips = %q", p.ImportTips)
	}
	if p.Services == nil {
		t.Fatalf("Services should never be nil")
	}
	if !p.IsGtkApplication {
		t.Fatalf("IsGtkApplication not propagated")
	}
}
