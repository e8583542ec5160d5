// directive_test.go - Directive rendering tests.
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

func TestToArgsDestDefaultsToSource(t *testing.T) {
	got := ToArgs(ReadOnlyBind{Source: "/usr"})
	want := []string{"--ro-bind", "/usr", "/usr"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestToArgsDestOverride(t *testing.T) {
	got := ToArgs(Bind{Source: "/home/alice", Dest: "/home/user"})
	want := []string{"--bind", "/home/alice", "/home/user"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestToArgsDirCreateWithoutPerm(t *testing.T) {
	got := ToArgs(DirCreate{Path: "/tmp"})
	want := []string{"--dir", "/tmp"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestToArgsDirCreateWithPerm(t *testing.T) {
	perm := 0700
	got := ToArgs(DirCreate{Path: "/run/user/1000", Perm: &perm})
	want := []string{"--perms", "0700", "--dir", "/run/user/1000"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestToArgsPanicsOnNonFilesystemDirective(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for a non-filesystem directive")
		}
	}()
	ToArgs(DbusSessionOwn{Name: "org.example"})
}

func TestToProxyArgCallWildcards(t *testing.T) {
	got := ToProxyArg(DbusSessionCall{Name: "org.example", Interface: "", Object: ""})
	want := "--call=org.example=*@*"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToProxyArgBroadcastExplicit(t *testing.T) {
	got := ToProxyArg(DbusSessionBroadcast{Name: "org.example", Interface: "org.example.Iface", Object: "/org/example"})
	want := "--broadcast=org.example=org.example.Iface@/org/example"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestIsSystemBusArg(t *testing.T) {
	if !IsSystemBusArg(DbusSystemRawArg{Arg: "--see=org.example"}) {
		t.Fatalf("expected DbusSystemRawArg to be a system-bus arg")
	}
	if IsSystemBusArg(DbusSessionRawArg{Arg: "--see=org.example"}) {
		t.Fatalf("expected DbusSessionRawArg not to be a system-bus arg")
	}
}
