// netns.go - Namespace-attached network services.
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

// Namespace-attaching network services: slirp4netns, pasta, and the
// namespace-count limiter. Each installs a post-init hook that enters the
// sandbox's namespaces via internal/nsfd and drives an external process
// with exec.Cmd.
package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/igo95862/bubblejail-sub000/internal/bjerrors"
	"github.com/igo95862/bubblejail-sub000/internal/bjlog"
	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
	"github.com/igo95862/bubblejail-sub000/internal/nsfd"
)

const netnsReadyTimeout = 3 * time.Second

var slirp4netnsDescriptor = Descriptor{
	Name:             "slirp4netns",
	PrettyName:       "slirp4netns networking",
	Description:      "Independent networking stack for the sandbox; requires the slirp4netns binary",
	Conflicts:        []string{"network", "pasta_network"},
	Enabled:          func(cfg *ServicesConfig) bool { return cfg.Slirp4netns != nil },
	Iter:             slirp4netnsIter,
	PostInitHook:     slirp4netnsPostInit,
	PostShutdownHook: slirp4netnsPostShutdown,
}

func slirp4netnsIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()

	var dnsServers []string
	if cfg.Slirp4netns != nil {
		dnsServers = append(dnsServers, cfg.Slirp4netns.DNSServers...)
	}
	// The internal DNS server is always reachable last.
	dnsServers = append(dnsServers, "10.0.2.3")

	var lines []string
	for _, server := range dnsServers {
		lines = append(lines, "nameserver "+server)
	}

	// systemd-resolved and some DHCP clients make /etc/resolv.conf a
	// symlink; the transfer must target the real file.
	resolvConf := "/etc/resolv.conf"
	if target, err := filepath.EvalSymlinks(resolvConf); err == nil {
		resolvConf = target
	}
	b.Add(directive.FileTransfer{Content: []byte(strings.Join(lines, "\n")), Dest: resolvConf})
	return b.Build()
}

var slirpProcesses = map[int]*exec.Cmd{}

func slirp4netnsPostInit(ctx context.Context, pid int, cfg *ServicesConfig, log bjlog.Logger) error {
	settings := cfg.Slirp4netns
	if settings == nil {
		return bjerrors.New(bjerrors.Configuration, "slirp4netns.PostInit", "missing settings")
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	netNs, err := nsfd.Open(pid, nsfd.Net)
	if err != nil {
		return bjerrors.Wrap(err, bjerrors.Initialization, "slirp4netns.PostInit")
	}
	defer netNs.Close()

	userNs, err := netNs.ParentUserNamespace()
	if err != nil {
		return bjerrors.Wrap(err, bjerrors.Initialization, "slirp4netns.PostInit")
	}
	defer userNs.Close()

	parentNsPath := fmt.Sprintf("/proc/%d/fd/%d", os.Getpid(), userNs.Fd())

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return bjerrors.Wrap(err, bjerrors.Initialization, "slirp4netns.PostInit")
	}
	readyRead := os.NewFile(uintptr(fds[0]), "slirp4netns-ready-r")
	readyWrite := os.NewFile(uintptr(fds[1]), "slirp4netns-ready-w")
	defer readyRead.Close()

	slirpPath, err := exec.LookPath("slirp4netns")
	if err != nil {
		readyWrite.Close()
		return bjerrors.New(bjerrors.Dependency, "slirp4netns.PostInit", "slirp4netns binary not found")
	}

	args := []string{
		fmt.Sprintf("--ready=%d", 3),
		"--configure",
		"--userns-path=" + parentNsPath,
	}
	if settings.OutboundAddr != "" {
		args = append(args, "--outbound-addr="+settings.OutboundAddr)
	}
	if settings.DisableHostLoopback {
		args = append(args, "--disable-host-loopback")
	}
	args = append(args, strconv.Itoa(pid), "tap0")

	cmd := exec.Command(slirpPath, args...)
	cmd.ExtraFiles = []*os.File{readyWrite}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		readyWrite.Close()
		return bjerrors.Wrap(err, bjerrors.Dependency, "slirp4netns.PostInit")
	}
	readyWrite.Close()
	slirpProcesses[pid] = cmd

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		readyRead.Read(buf)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(netnsReadyTimeout):
		cmd.Process.Kill()
		cmd.Wait()
		delete(slirpProcesses, pid)
		return bjerrors.New(bjerrors.Initialization, "slirp4netns.PostInit", "slirp4netns initialization timed out")
	}
	return nil
}

func slirp4netnsPostShutdown(ctx context.Context, cfg *ServicesConfig, log bjlog.Logger) error {
	for pid, cmd := range slirpProcesses {
		cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() { cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(netnsReadyTimeout):
			cmd.Process.Kill()
			<-done
		}
		delete(slirpProcesses, pid)
	}
	return nil
}

var pastaNetworkDescriptor = Descriptor{
	Name:             "pasta_network",
	PrettyName:       "pasta networking",
	Description:      "Independent networking stack for the sandbox; requires the pasta binary",
	Conflicts:        []string{"network", "slirp4netns"},
	Enabled:          func(cfg *ServicesConfig) bool { return cfg.PastaNetwork != nil },
	PostInitHook:     pastaNetworkPostInit,
	PostShutdownHook: pastaNetworkPostShutdown,
}

var pastaProcesses = map[int]*exec.Cmd{}

func pastaNetworkPostInit(ctx context.Context, pid int, cfg *ServicesConfig, log bjlog.Logger) error {
	if cfg.PastaNetwork == nil {
		return bjerrors.New(bjerrors.Configuration, "pasta_network.PostInit", "missing settings")
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	netNs, err := nsfd.Open(pid, nsfd.Net)
	if err != nil {
		return bjerrors.Wrap(err, bjerrors.Initialization, "pasta_network.PostInit")
	}
	defer netNs.Close()
	userNs, err := netNs.ParentUserNamespace()
	if err != nil {
		return bjerrors.Wrap(err, bjerrors.Initialization, "pasta_network.PostInit")
	}
	defer userNs.Close()

	pastaPath, err := exec.LookPath("pasta")
	if err != nil {
		return bjerrors.New(bjerrors.Dependency, "pasta_network.PostInit", "pasta binary not found")
	}

	userNsPath := fmt.Sprintf("/proc/%d/fd/%d", os.Getpid(), userNs.Fd())
	args := []string{"--config-net", "--foreground", "--userns", userNsPath}
	args = append(args, cfg.PastaNetwork.ExtraArgs...)
	args = append(args, strconv.Itoa(pid))

	cmd := exec.Command(pastaPath, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return bjerrors.Wrap(err, bjerrors.Dependency, "pasta_network.PostInit")
	}
	pastaProcesses[pid] = cmd
	return nil
}

func pastaNetworkPostShutdown(ctx context.Context, cfg *ServicesConfig, log bjlog.Logger) error {
	for pid, cmd := range pastaProcesses {
		cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() { cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(netnsReadyTimeout):
			cmd.Process.Kill()
			<-done
		}
		delete(pastaProcesses, pid)
	}
	return nil
}

var namespacesLimitsDescriptor = Descriptor{
	Name:         "namespaces_limits",
	PrettyName:   "Namespace creation limits",
	Description:  "Restricts how many further namespaces the sandbox may create",
	Enabled:      func(cfg *ServicesConfig) bool { return cfg.NamespacesLimits != nil },
	PostInitHook: namespacesLimitsPostInit,
}

func namespacesLimitsPostInit(ctx context.Context, pid int, cfg *ServicesConfig, log bjlog.Logger) error {
	settings := cfg.NamespacesLimits
	if settings == nil {
		return bjerrors.New(bjerrors.Configuration, "namespaces_limits.PostInit", "missing settings")
	}

	limits := map[string]int{}
	addLimit := func(file string, v int) {
		if v < 0 {
			return
		}
		if v > 0 {
			v++
		}
		limits[file] = v
	}
	addLimit("max_user_namespaces", settings.User)
	addLimit("max_mnt_namespaces", settings.Mount)
	addLimit("max_pid_namespaces", settings.Pid)
	addLimit("max_ipc_namespaces", settings.Ipc)
	if settings.Net >= 0 {
		netLimit := settings.Net
		if !cfg.Network {
			netLimit++
		}
		limits["max_net_namespaces"] = netLimit
	}
	addLimit("max_uts_namespaces", settings.Uts)
	addLimit("max_cgroup_namespaces", settings.Cgroup)

	setCtx, cancel := context.WithTimeout(ctx, netnsReadyTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- setNamespaceLimits(pid, limits) }()

	select {
	case err := <-errCh:
		if err != nil {
			return bjerrors.Wrap(err, bjerrors.Initialization, "namespaces_limits.PostInit")
		}
		return nil
	case <-setCtx.Done():
		return bjerrors.New(bjerrors.Initialization, "namespaces_limits.PostInit", "timed out setting namespace limits")
	}
}

// setNamespaceLimits is run on its own locked OS thread: it must join the
// sandboxed process's (or its parent, if already inside one) user namespace
// before the /proc/sys/user/max_*_namespaces writes take effect there.
func setNamespaceLimits(pid int, limits map[string]int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	targetNs, err := nsfd.Open(pid, nsfd.User)
	if err != nil {
		return err
	}
	defer targetNs.Close()

	parentNs, err := targetNs.ParentUserNamespace()
	if err == nil {
		parentNs.Setns()
		parentNs.Close()
	}
	if err := targetNs.Setns(); err != nil {
		return err
	}

	for file, limit := range limits {
		path := filepath.Join("/proc/sys/user", file)
		if err := os.WriteFile(path, []byte(strconv.Itoa(limit)), 0644); err != nil {
			return err
		}
	}
	return nil
}
