// seccomp_test.go - Seccomp builder tests.
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

package seccomp

import "testing"

func TestEmptyBuilderProducesNoFd(t *testing.T) {
	b := NewBuilder()
	if !b.Empty() {
		t.Fatalf("expected fresh builder to be empty")
	}
	f, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if f != nil {
		t.Fatalf("expected no fd for an empty builder, got %v", f)
	}
}

func TestCompileSkipsMissingSyscallWhenTolerant(t *testing.T) {
	b := NewBuilder()
	b.knownSyscalls = map[string]bool{"read": true}
	b.Add(Rule{Syscall: "read", Errno: 1})
	b.Add(Rule{Syscall: "totally_bogus_syscall", Errno: 1, SkipOnMissing: true})

	f, err := b.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if f == nil {
		t.Fatalf("expected a compiled program from the one surviving rule")
	}
	f.Close()
}

func TestCompileFailsOnMissingSyscallWhenIntolerant(t *testing.T) {
	b := NewBuilder()
	b.knownSyscalls = map[string]bool{"read": true}
	b.Add(Rule{Syscall: "totally_bogus_syscall", Errno: 1, SkipOnMissing: false})

	if _, err := b.Compile(); err == nil {
		t.Fatalf("expected resolution failure to be fatal without SkipOnMissing")
	}
}

func TestDefaultBlocklistAllTolerant(t *testing.T) {
	for _, r := range DefaultBlocklist() {
		if !r.SkipOnMissing {
			t.Fatalf("expected every default-blocklist rule to tolerate a missing syscall, got %+v", r)
		}
		if r.Errno != 1 {
			t.Fatalf("expected errno 1 for %s, got %d", r.Syscall, r.Errno)
		}
	}
}
