// nsfd.go - Namespace file descriptor wrappers.
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

// Package nsfd wraps setns(2), /proc/<pid>/ns/<kind>, and the NS_GET_USERNS
// ioctl used by the slirp4netns/pasta and namespaces_limits post-init
// hooks.
package nsfd

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Kind is a namespace kind as named under /proc/<pid>/ns/.
type Kind string

const (
	User Kind = "user"
	Net  Kind = "net"
)

// nsGetUserns is the ioctl request number for NS_GET_USERNS (0xB701), not
// exposed by golang.org/x/sys/unix as a named constant.
const nsGetUserns = 0xB701

// Namespace is an open handle on one namespace, identified by an O_RDONLY
// close-on-exec file descriptor into /proc/<pid>/ns/<kind>.
type Namespace struct {
	kind Kind
	fd   int
}

// Open opens the Kind namespace of pid.
func Open(pid int, kind Kind) (*Namespace, error) {
	path := fmt.Sprintf("/proc/%d/ns/%s", pid, kind)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("nsfd: open %s: %w", path, err)
	}
	return &Namespace{kind: kind, fd: fd}, nil
}

// FromFd wraps an already-open descriptor (e.g. one inherited across
// exec as /proc/self/fd/N, per the slirp4netns/pasta post-init hooks).
func FromFd(fd int, kind Kind) *Namespace {
	return &Namespace{kind: kind, fd: fd}
}

// Fd returns the underlying file descriptor.
func (n *Namespace) Fd() int { return n.fd }

// Close releases the descriptor.
func (n *Namespace) Close() error {
	if n.fd < 0 {
		return nil
	}
	err := unix.Close(n.fd)
	n.fd = -1
	return err
}

// Setns joins the calling goroutine's OS thread to this namespace. The
// caller must have pinned the calling goroutine with runtime.LockOSThread
// beforehand, since setns only affects the current thread.
func (n *Namespace) Setns() error {
	_, _, errno := unix.Syscall(unix.SYS_SETNS, uintptr(n.fd), 0, 0)
	if errno != 0 {
		return os.NewSyscallError("setns", errno)
	}
	return nil
}

// ParentUserNamespace returns the user namespace that owns n, via the
// NS_GET_USERNS ioctl. Only meaningful when n is a user
// namespace.
func (n *Namespace) ParentUserNamespace() (*Namespace, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(n.fd), uintptr(nsGetUserns), 0)
	if errno != 0 {
		return nil, os.NewSyscallError("ioctl NS_GET_USERNS", errno)
	}
	return &Namespace{kind: User, fd: int(r)}, nil
}
