// proxy.go - D-Bus proxy lifecycle management.
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

// Package dbusproxy drives xdg-dbus-proxy, the external binary that
// brokers filtered D-Bus access for the sandbox. The readiness-pipe race
// is modeled with a goroutine and a done channel.
package dbusproxy

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/igo95862/bubblejail-sub000/internal/bjerrors"
	"github.com/igo95862/bubblejail-sub000/internal/bjlog"
)

const readyTimeout = 3 * time.Second

// Proxy owns the xdg-dbus-proxy child process and the two socket paths it
// listens on inside the runtime directory.
type Proxy struct {
	BinaryPath string

	SessionBusAddress string
	SessionSocketPath string
	SessionRules      []string

	SystemSocketPath string
	SystemRules      []string
	LogMessages      bool

	log bjlog.Logger

	cmd *exec.Cmd
}

// AddSessionRule accumulates one xdg-dbus-proxy rule argument for the
// session bus (e.g. "--talk=org.freedesktop.Notifications").
func (p *Proxy) AddSessionRule(arg string) { p.SessionRules = append(p.SessionRules, arg) }

// AddSystemRule accumulates one rule argument for the system bus.
func (p *Proxy) AddSystemRule(arg string) { p.SystemRules = append(p.SystemRules, arg) }

func (p *Proxy) args(readyFd int) []string {
	args := []string{fmt.Sprintf("--fd=%d", readyFd)}
	args = append(args, p.SessionBusAddress, p.SessionSocketPath)
	args = append(args, p.SessionRules...)
	args = append(args, "--filter")
	if p.LogMessages {
		args = append(args, "--log")
	}
	args = append(args, "unix:path=/run/dbus/system_bus_socket", p.SystemSocketPath)
	args = append(args, p.SystemRules...)
	args = append(args, "--filter")
	if p.LogMessages {
		args = append(args, "--log")
	}
	return args
}

// Start forks+execs xdg-dbus-proxy and blocks until its readiness pipe
// yields a byte or readyTimeout elapses.
func (p *Proxy) Start() error {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return bjerrors.Wrap(err, bjerrors.Initialization, "dbusproxy.Start")
	}
	readFile := os.NewFile(uintptr(fds[0]), "dbus-proxy-ready-r")
	writeFile := os.NewFile(uintptr(fds[1]), "dbus-proxy-ready-w")

	cmd := exec.Command(p.BinaryPath, p.args(3)...)
	cmd.ExtraFiles = []*os.File{writeFile}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		readFile.Close()
		writeFile.Close()
		return bjerrors.Wrap(err, bjerrors.Dependency, "dbusproxy.Start")
	}
	writeFile.Close()
	p.cmd = cmd

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		buf := make([]byte, 1)
		n, err := readFile.Read(buf)
		done <- result{n, err}
	}()

	select {
	case res := <-done:
		readFile.Close()
		if res.err != nil || res.n == 0 {
			p.killLocked()
			return bjerrors.New(bjerrors.Initialization, "dbusproxy.Start",
				"proxy closed readiness pipe without signaling ready")
		}
	case <-time.After(readyTimeout):
		readFile.Close()
		p.killLocked()
		return bjerrors.New(bjerrors.Initialization, "dbusproxy.Start", "readiness timeout")
	}

	if !p.running() {
		return bjerrors.New(bjerrors.Initialization, "dbusproxy.Start", "proxy exited during startup")
	}
	return nil
}

func (p *Proxy) running() bool {
	if p.cmd == nil || p.cmd.Process == nil {
		return false
	}
	wpid, err := syscall.Wait4(p.cmd.Process.Pid, nil, syscall.WNOHANG, nil)
	return err == nil && wpid == 0
}

func (p *Proxy) killLocked() {
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
}

// Terminate tears the proxy down. The read side of the readiness pipe is
// assumed already closed by the caller (the proxy exits on its own once it
// observes that); this staged SIGTERM-then-SIGKILL sequence is the
// fallback for a proxy that does not.
func (p *Proxy) Terminate() {
	if p.cmd == nil || p.cmd.Process == nil {
		p.unlinkSockets()
		return
	}

	waitWithTimeout := func(timeout time.Duration) bool {
		done := make(chan struct{})
		go func() {
			p.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
			return true
		case <-time.After(timeout):
			return false
		}
	}

	if waitWithTimeout(readyTimeout) {
		p.unlinkSockets()
		return
	}

	p.cmd.Process.Signal(syscall.SIGTERM)
	if waitWithTimeout(readyTimeout) {
		p.unlinkSockets()
		return
	}

	p.cmd.Process.Kill()
	waitWithTimeout(readyTimeout)
	p.unlinkSockets()
}

func (p *Proxy) unlinkSockets() {
	if p.SessionSocketPath != "" {
		os.Remove(p.SessionSocketPath)
	}
	if p.SystemSocketPath != "" {
		os.Remove(p.SystemSocketPath)
	}
}
