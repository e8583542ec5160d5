// iterator_test.go - Directive iterator tests.
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

package directive

import (
	"reflect"
	"testing"
)

func resolvePlaceholders(d Directive) (string, bool) {
	switch d.(type) {
	case WantsHomeBind:
		return "/home/alice/.bubblejail/myapp", true
	case WantsDbusSessionBind:
		return "/run/user/1000/bubblejail/myapp/dbus_session_proxy", true
	default:
		return "", false
	}
}

func TestIteratorResumeSplicesContinuation(t *testing.T) {
	b := NewBuilder()
	b.Add(ChangeDir{Path: "placeholder"})
	b.AddHomeBindRequest(func(path string) []Directive {
		return []Directive{Bind{Source: path, Dest: "/home/user"}, ChangeDir{Path: "/home/user"}}
	})
	b.Add(EnvironVar{Name: "LANG"})
	it := b.Build()

	got := Collect(it, resolvePlaceholders)
	want := []Directive{
		ChangeDir{Path: "placeholder"},
		Bind{Source: "/home/alice/.bubblejail/myapp", Dest: "/home/user"},
		ChangeDir{Path: "/home/user"},
		EnvironVar{Name: "LANG"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestIteratorExhaustsOnce(t *testing.T) {
	b := NewBuilder()
	b.Add(ShareNetwork{})
	it := b.Build()

	if _, ok := it.Next(); !ok {
		t.Fatalf("expected first directive")
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("expected iterator to be exhausted")
	}
}

func TestResumeNoOpWithoutPlaceholder(t *testing.T) {
	b := NewBuilder()
	b.Add(ShareNetwork{})
	it := b.Build()
	it.Next()
	it.Resume("/should/be/ignored")
	if _, ok := it.Next(); ok {
		t.Fatalf("Resume after a non-placeholder directive must not splice anything in")
	}
}
