// catalog_test.go - Service catalog invariant tests.
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

package services

import "testing"

// Every conflict relation must be symmetric: if S lists T as a conflict, T
// must list S too.
func TestCatalogConflictsAreSymmetric(t *testing.T) {
	conflictsOf := make(map[string]map[string]bool, len(Catalog))
	for _, d := range Catalog {
		set := make(map[string]bool, len(d.Conflicts))
		for _, c := range d.Conflicts {
			set[c] = true
		}
		conflictsOf[d.Name] = set
	}

	for name, conflicts := range conflictsOf {
		for other := range conflicts {
			if !conflictsOf[other][name] {
				t.Errorf("asymmetric conflict: %s conflicts with %s but not vice versa", name, other)
			}
		}
	}
}

func TestCatalogNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool, len(Catalog))
	for _, d := range Catalog {
		if seen[d.Name] {
			t.Fatalf("duplicate catalog entry %q", d.Name)
		}
		seen[d.Name] = true
	}
}

func TestNewContainerRejectsConflictingPair(t *testing.T) {
	cfg := &ServicesConfig{
		Network:     true,
		Slirp4netns: &Slirp4netnsSettings{},
	}
	if _, err := NewContainer(cfg); err == nil {
		t.Fatalf("expected ServiceConflictError for network+slirp4netns")
	}
}

func TestNewContainerAcceptsNonConflicting(t *testing.T) {
	cfg := &ServicesConfig{
		X11:     true,
		Wayland: true,
	}
	c, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	names := c.EnabledNames()
	if len(names) != 2 || names[0] != "x11" || names[1] != "wayland" {
		t.Fatalf("expected [x11 wayland] in catalog order, got %v", names)
	}
}
