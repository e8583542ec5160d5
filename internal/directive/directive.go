// directive.go - Sandbox argument directives.
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

// Package directive defines the closed family of sandbox-arg variants
// every service emits. Directives are plain value objects; the runner
// dispatches on concrete type via a type switch.
package directive

import "fmt"

// Directive is implemented by every variant below. The unexported marker
// method closes the family to this package.
type Directive interface {
	isDirective()
}

// --- Filesystem directives ---

// ReadOnlyBind mounts Source read-only at Dest (Dest defaults to Source).
type ReadOnlyBind struct{ Source, Dest string }

// ReadOnlyBindTry is ReadOnlyBind but tolerant of a missing Source.
type ReadOnlyBindTry struct{ Source, Dest string }

// Bind mounts Source read-write at Dest.
type Bind struct{ Source, Dest string }

// BindTry is Bind but tolerant of a missing Source.
type BindTry struct{ Source, Dest string }

// DevBind mounts a device node, preserving device semantics.
type DevBind struct{ Source, Dest string }

// DevBindTry is DevBind but tolerant of a missing Source.
type DevBindTry struct{ Source, Dest string }

// DirCreate creates an empty directory inside the sandbox, optionally with
// an explicit permission mode (nil means bwrap's default).
type DirCreate struct {
	Path string
	Perm *int
}

// Symlink creates a symlink Linkname -> Target inside the sandbox.
type Symlink struct{ Target, Linkname string }

// ChangeDir sets the working directory the target is exec'd in.
type ChangeDir struct{ Path string }

// RawArgs passes literal mount-helper arguments through unmodified; used
// by the debug service for ad-hoc bwrap flags.
type RawArgs struct{ Args []string }

func (ReadOnlyBind) isDirective()    {}
func (ReadOnlyBindTry) isDirective() {}
func (Bind) isDirective()            {}
func (BindTry) isDirective()         {}
func (DevBind) isDirective()         {}
func (DevBindTry) isDirective()      {}
func (DirCreate) isDirective()       {}
func (Symlink) isDirective()         {}
func (ChangeDir) isDirective()       {}
func (RawArgs) isDirective()         {}

func dest(source, d string) string {
	if d == "" {
		return source
	}
	return d
}

// ToArgs renders the mount-helper argv fragment for a filesystem, symlink,
// chdir, or raw-passthrough directive. Panics on other directive kinds;
// callers must dispatch those separately (see runner.Runner.GenerateArgs).
func ToArgs(d Directive) []string {
	switch v := d.(type) {
	case ReadOnlyBind:
		return []string{"--ro-bind", v.Source, dest(v.Source, v.Dest)}
	case ReadOnlyBindTry:
		return []string{"--ro-bind-try", v.Source, dest(v.Source, v.Dest)}
	case Bind:
		return []string{"--bind", v.Source, dest(v.Source, v.Dest)}
	case BindTry:
		return []string{"--bind-try", v.Source, dest(v.Source, v.Dest)}
	case DevBind:
		return []string{"--dev-bind", v.Source, dest(v.Source, v.Dest)}
	case DevBindTry:
		return []string{"--dev-bind-try", v.Source, dest(v.Source, v.Dest)}
	case DirCreate:
		if v.Perm != nil {
			return []string{"--perms", fmt.Sprintf("%04o", *v.Perm), "--dir", v.Path}
		}
		return []string{"--dir", v.Path}
	case Symlink:
		return []string{"--symlink", v.Target, v.Linkname}
	case ChangeDir:
		return []string{"--chdir", v.Path}
	case RawArgs:
		return append([]string{}, v.Args...)
	default:
		panic(fmt.Sprintf("directive: %T is not a mount-helper-args directive", d))
	}
}

// --- Environment directives ---

// EnvironVar sets an in-sandbox environment variable. When Value is nil
// the value is taken from the generating environment snapshot; a missing
// outer variable is a configuration error.
type EnvironVar struct {
	Name  string
	Value *string
}

func (EnvironVar) isDirective() {}

// --- Network ---

// ShareNetwork requests the sandbox keep the host network namespace.
type ShareNetwork struct{}

func (ShareNetwork) isDirective() {}

// --- File transfer ---

// FileTransfer materializes Content as an anonymous file whose descriptor
// is bound read-only at Dest inside the sandbox.
type FileTransfer struct {
	Content []byte
	Dest    string
}

func (FileTransfer) isDirective() {}

// --- D-Bus ---

// DbusSessionOwn allows the sandbox to own Name on the session bus.
type DbusSessionOwn struct{ Name string }

// DbusSessionSee allows the sandbox to see Name exists on the session bus.
type DbusSessionSee struct{ Name string }

// DbusSessionTalkTo allows the sandbox to call methods on Name.
type DbusSessionTalkTo struct{ Name string }

// DbusSessionCall allows one specific method call, gated by interface and
// object path (either may be "*" for wildcard).
type DbusSessionCall struct{ Name, Interface, Object string }

// DbusSessionBroadcast allows receiving one specific signal.
type DbusSessionBroadcast struct{ Name, Interface, Object string }

// DbusSessionRawArg passes a literal xdg-dbus-proxy session-bus argument.
type DbusSessionRawArg struct{ Arg string }

// DbusSystemRawArg passes a literal xdg-dbus-proxy system-bus argument.
type DbusSystemRawArg struct{ Arg string }

func (DbusSessionOwn) isDirective()       {}
func (DbusSessionSee) isDirective()       {}
func (DbusSessionTalkTo) isDirective()    {}
func (DbusSessionCall) isDirective()      {}
func (DbusSessionBroadcast) isDirective() {}
func (DbusSessionRawArg) isDirective()    {}
func (DbusSystemRawArg) isDirective()     {}

// ToProxyArg renders the xdg-dbus-proxy rule text for a D-Bus directive.
func ToProxyArg(d Directive) string {
	objOrWild := func(s string) string {
		if s == "" {
			return "*"
		}
		return s
	}
	switch v := d.(type) {
	case DbusSessionOwn:
		return "--own=" + v.Name
	case DbusSessionSee:
		return "--see=" + v.Name
	case DbusSessionTalkTo:
		return "--talk=" + v.Name
	case DbusSessionCall:
		return "--call=" + v.Name + "=" + objOrWild(v.Interface) + "@" + objOrWild(v.Object)
	case DbusSessionBroadcast:
		return "--broadcast=" + v.Name + "=" + objOrWild(v.Interface) + "@" + objOrWild(v.Object)
	case DbusSessionRawArg:
		return v.Arg
	case DbusSystemRawArg:
		return v.Arg
	default:
		panic(fmt.Sprintf("directive: %T is not a D-Bus directive", d))
	}
}

// IsSystemBusArg reports whether d belongs on the system-bus proxy argv
// rather than the session-bus one.
func IsSystemBusArg(d Directive) bool {
	_, ok := d.(DbusSystemRawArg)
	return ok
}

// --- Seccomp ---

// SeccompSyscallErrno requests that calling Name return Errno instead of
// running. SkipOnMissing tolerates the syscall not existing on this arch.
type SeccompSyscallErrno struct {
	Name          string
	Errno         int
	SkipOnMissing bool
}

func (SeccompSyscallErrno) isDirective() {}

// --- Launch ---

// LaunchArguments contributes argv to prepend/append to the target command
// line; Priority breaks ties when multiple services contribute (lower runs
// first).
type LaunchArguments struct {
	Argv     []string
	Priority int
}

func (LaunchArguments) isDirective() {}

// --- Placeholders ---

// WantsHomeBind asks the runner to resume iteration with the instance's
// outside-sandbox home directory path.
type WantsHomeBind struct{}

// WantsDbusSessionBind asks the runner to resume iteration with the
// session D-Bus proxy's outside-sandbox socket path.
type WantsDbusSessionBind struct{}

func (WantsHomeBind) isDirective()        {}
func (WantsDbusSessionBind) isDirective() {}
