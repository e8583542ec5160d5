// seccomp.go - Sandbox seccomp rules.
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

// Package seccomp compiles the accumulated syscall-errno rules into a BPF
// program using the pure-Go gosecco compiler, producing a filter handed to
// bwrap via a file descriptor without cgo-binding libseccomp.
package seccomp

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/twtiger/gosecco"
	"github.com/twtiger/gosecco/parser"

	"github.com/igo95862/bubblejail-sub000/internal/bjerrors"
)

// Rule is one accumulated (syscall, errno, tolerant-of-missing) tuple.
type Rule struct {
	Syscall       string
	Errno         int
	SkipOnMissing bool
}

// Builder accumulates rules across all enabled services and the defaults
// service, then compiles them into one BPF program.
type Builder struct {
	rules []Rule
	// knownSyscalls, when non-nil, is consulted to simulate libseccomp's
	// name-resolution failure for a SkipOnMissing rule. Tests substitute a
	// restricted set; production leaves it nil (gosecco itself resolves
	// names against the running kernel's syscall table at compile time).
	knownSyscalls map[string]bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add accumulates one rule. Resolution and compilation are deferred to
// Compile.
func (b *Builder) Add(r Rule) {
	b.rules = append(b.rules, r)
}

// Empty reports whether no rules have been accumulated; an empty builder
// produces no seccomp fd at all.
func (b *Builder) Empty() bool { return len(b.rules) == 0 }

// settings: the default action is allow, with ENOSYS for any syscall a
// rule resolves against but whose condition does not match, and a kill
// policy for x32 ABI and audit-arch mismatches (both classic
// seccomp-escape vectors).
func settings() gosecco.SeccompSettings {
	return gosecco.SeccompSettings{
		DefaultPositiveAction: "allow",
		DefaultNegativeAction: "ENOSYS",
		DefaultPolicyAction:   "ENOSYS",
		ActionOnX32:           "kill",
		ActionOnAuditFailure:  "kill",
	}
}

// ruleSource renders one gosecco rule line of the form "name: errno(N)",
// unconditionally matching the named syscall.
func ruleSource(r Rule) string {
	return fmt.Sprintf("%s: errno(%d)\n", r.Syscall, r.Errno)
}

// Compile resolves every accumulated rule and compiles the survivors into a
// BPF program, writing it to a freshly created temp file whose descriptor
// is returned (caller owns closing it and passing it on to the mount
// helper via --seccomp <fd>). Resolution failure without SkipOnMissing is
// fatal; any other compiler error is fatal.
func (b *Builder) Compile() (*os.File, error) {
	if b.Empty() {
		return nil, nil
	}

	var kept []Rule
	for _, r := range b.rules {
		if b.knownSyscalls != nil && !b.knownSyscalls[r.Syscall] {
			if r.SkipOnMissing {
				continue
			}
			return nil, bjerrors.New(bjerrors.Initialization, "seccomp.Compile",
				fmt.Sprintf("unknown syscall %q", r.Syscall))
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for _, r := range kept {
		sb.WriteString(ruleSource(r))
	}

	source := &parser.StringSource{Name: "bubblejail-seccomp", Content: sb.String()}
	bpf, err := gosecco.PrepareSource(parser.CombineSources(source), settings())
	if err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "seccomp.Compile")
	}

	if size, limit := len(bpf), 0xffff; size > limit {
		return nil, bjerrors.New(bjerrors.Initialization, "seccomp.Compile",
			fmt.Sprintf("filter program too big: %d bpf instructions (limit %d)", size, limit))
	}

	f, err := os.CreateTemp("", "bubblejail-seccomp-*")
	if err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "seccomp.Compile")
	}
	for _, instr := range bpf {
		if err := binary.Write(f, binary.LittleEndian, instr); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, bjerrors.Wrap(err, bjerrors.Initialization, "seccomp.Compile")
		}
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "seccomp.Compile")
	}
	return f, nil
}

// DefaultBlocklist is the defaults service's blocklist of historically
// dangerous syscalls, each tolerant of a missing syscall on the running
// kernel/arch.
func DefaultBlocklist() []Rule {
	names := []string{
		"acct", "add_key", "bpf", "clock_adjtime", "clock_settime",
		"create_module", "delete_module", "finit_module", "get_kernel_syms",
		"init_module", "ioperm", "iopl", "kcmp", "kexec_file_load",
		"kexec_load", "keyctl", "lookup_dcookie", "mount", "move_pages",
		"name_to_handle_at", "nfsservctl", "open_by_handle_at",
		"perf_event_open", "personality", "pivot_root", "process_vm_readv",
		"process_vm_writev", "ptrace", "query_module", "quotactl",
		"reboot", "request_key", "set_mempolicy", "setns", "settimeofday",
		"swapoff", "swapon", "sysfs", "umount", "umount2", "unshare",
		"uselib", "userfaultfd", "vm86", "vm86old",
	}
	rules := make([]Rule, len(names))
	for i, n := range names {
		rules[i] = Rule{Syscall: n, Errno: 1, SkipOnMissing: true}
	}
	return rules
}
