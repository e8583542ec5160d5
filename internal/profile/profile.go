// profile.go - Instance profiles.
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

// Package profile models a named, importable service preset used to seed
// a new instance's configuration.
package profile

import "os"

// Profile is an importable starting point for a new instance: a service
// selection plus metadata describing which installed desktop entry it
// corresponds to.
type Profile struct {
	// DesktopEntryPaths lists candidate .desktop file locations, in
	// priority order. The on-disk form accepts either a bare string or a
	// list; it arrives here already normalized to a slice.
	DesktopEntryPaths []string
	IsGtkApplication  bool
	Services          map[string]map[string]any
	Description       string
	ImportTips        string
}

// New returns a Profile with the field defaults applied.
func New(desktopEntryPaths []string, isGtkApplication bool, services map[string]map[string]any) *Profile {
	if services == nil {
		services = map[string]map[string]any{}
	}
	return &Profile{
		DesktopEntryPaths: desktopEntryPaths,
		IsGtkApplication:  isGtkApplication,
		Services:          services,
		Description:       "No description",
		ImportTips:        "None",
	}
}

// FindDesktopEntry returns the first candidate path in DesktopEntryPaths
// that exists on disk, or "" if none do.
func (p *Profile) FindDesktopEntry() string {
	for _, path := range p.DesktopEntryPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
