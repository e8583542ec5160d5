// runner.go - Sandbox launch pipeline.
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

// Package runner drives one sandbox launch end to end: argument generation
// from a service container's directives, the strict process startup
// sequence, SIGTERM-driven cancellation, and reverse-order failure
// unwinding. Everything runs straight-line blocking on one goroutine;
// auxiliary goroutines exist only for the info-fd and ready-fd readiness
// races.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/igo95862/bubblejail-sub000/internal/bjerrors"
	"github.com/igo95862/bubblejail-sub000/internal/bjlog"
	"github.com/igo95862/bubblejail-sub000/internal/dbusproxy"
	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
	"github.com/igo95862/bubblejail-sub000/internal/notify"
	"github.com/igo95862/bubblejail-sub000/internal/process"
	"github.com/igo95862/bubblejail-sub000/internal/seccomp"
	"github.com/igo95862/bubblejail-sub000/internal/services"
)

// infoFdTimeout bounds the info-fd read and the D-Bus proxy readiness
// race.
const infoFdTimeout = 3 * time.Second

// terminationGrace bounds the SIGTERM-to-SIGKILL escalation.
const terminationGrace = 3 * time.Second

// Paths is the subset of an Instance's on-disk and runtime layout the
// runner needs; kept as a narrow struct here to avoid an import cycle with
// internal/instance, which constructs a Runner.
type Paths struct {
	InstanceName      string
	HomePath          string
	RuntimeDir        string // <runtime>/bubblejail/<name>
	HelperSocket      string // <RuntimeDir>/helper/helper.socket
	DbusSessionSocket string // <RuntimeDir>/dbus_session_proxy
	DbusSystemSocket  string // <RuntimeDir>/dbus_system_proxy
}

// Options configures one launch.
type Options struct {
	ShellDebug    bool
	LogDbus       bool
	ExtraRawArgs  []string
	BwrapPath     string // defaults to "bwrap" resolved via PATH
	HelperPath    string // defaults to "bubblejail-helper" resolved via PATH
	DbusProxyPath string // defaults to "xdg-dbus-proxy" resolved via PATH
}

// Runner drives exactly one launch; it is not reused across launches.
type Runner struct {
	paths     Paths
	opts      Options
	env       *environment.Snapshot
	log       bjlog.Logger
	container *services.Container

	mountOpts  []string
	execArgv   []string
	dbusProxy  *dbusproxy.Proxy
	seccompBld *seccomp.Builder

	tempFiles []*os.File // anonymous temp files: closed AND unlinked once bwrap holds its own fd
	closeOnly []*os.File // fds closed but never unlinked (e.g. the dup'd helper socket)
	extraFds  []*os.File // fds passed to the mount helper beyond --args/--seccomp/--info-fd/--ready-fd, in order

	unwind []func() // reverse-order cleanup actions pushed as each step succeeds
}

// New builds a Runner for one launch. container must already be validated
// (services.NewContainer).
func New(paths Paths, opts Options, container *services.Container, env *environment.Snapshot, log bjlog.Logger) *Runner {
	if opts.BwrapPath == "" {
		opts.BwrapPath = "bwrap"
	}
	if opts.HelperPath == "" {
		opts.HelperPath = "bubblejail-helper"
	}
	if opts.DbusProxyPath == "" {
		opts.DbusProxyPath = "xdg-dbus-proxy"
	}
	if log == nil {
		log = bjlog.NewAdapter(bjlog.Default())
	}
	return &Runner{paths: paths, opts: opts, env: env, log: log, container: container}
}

// GenerateArgs drains every service's
// directive iterator, dispatching each directive kind to the mount-helper
// argv, the D-Bus proxy rule lists, the seccomp builder, or the executable
// argv, resuming placeholders with the instance home path and (once
// started) the session proxy socket path.
func (r *Runner) GenerateArgs() error {
	r.seccompBld = seccomp.NewBuilder()
	r.mountOpts = []string{"--unshare-all", "--die-with-parent", "--as-pid-1"}
	if !r.opts.ShellDebug {
		r.mountOpts = append(r.mountOpts, "--new-session")
	}
	r.mountOpts = append(r.mountOpts, "--proc", "/proc", "--dev", "/dev", "--clearenv")

	if r.opts.ShellDebug {
		for _, name := range []string{"TERM", "COLORTERM"} {
			if v, ok := r.env.Get(name); ok {
				r.mountOpts = append(r.mountOpts, "--setenv", name, v)
			}
		}
	}

	var launchArgs []launchArg

	for _, d := range r.container.IterServices(true) {
		it := d.Iter(r.container.Config, r.env)
		if it == nil {
			continue
		}
		for {
			dir, ok := it.Next()
			if !ok {
				break
			}
			switch v := dir.(type) {
			case directive.WantsHomeBind:
				it.Resume(r.paths.HomePath)
				continue
			case directive.WantsDbusSessionBind:
				it.Resume(r.paths.DbusSessionSocket)
				continue
			case directive.FileTransfer:
				f, err := r.materializeFile(v.Content)
				if err != nil {
					return err
				}
				r.mountOpts = append(r.mountOpts, "--ro-bind-data", strconv.Itoa(r.fdSlot(f)), v.Dest)
			case directive.DbusSessionOwn, directive.DbusSessionSee, directive.DbusSessionTalkTo,
				directive.DbusSessionCall, directive.DbusSessionBroadcast, directive.DbusSessionRawArg:
				r.dbusSessionRule(directive.ToProxyArg(v))
			case directive.DbusSystemRawArg:
				r.dbusSystemRule(directive.ToProxyArg(v))
			case directive.SeccompSyscallErrno:
				r.seccompBld.Add(seccomp.Rule{Syscall: v.Name, Errno: v.Errno, SkipOnMissing: v.SkipOnMissing})
			case directive.LaunchArguments:
				launchArgs = append(launchArgs, launchArg{argv: v.Argv, priority: v.Priority})
			case directive.ShareNetwork:
				r.mountOpts = append(r.mountOpts, "--share-net")
			case directive.EnvironVar:
				value, err := r.resolveEnvironVar(v)
				if err != nil {
					return err
				}
				r.mountOpts = append(r.mountOpts, "--setenv", v.Name, value)
			default:
				r.mountOpts = append(r.mountOpts, directive.ToArgs(dir)...)
			}
		}
	}

	sortLaunchArgs(launchArgs)
	for _, la := range launchArgs {
		r.execArgv = append(r.execArgv, la.argv...)
	}
	if len(r.execArgv) == 0 {
		return bjerrors.New(bjerrors.Configuration, "runner.GenerateArgs", "no executable arguments contributed by any service")
	}

	if !r.seccompBld.Empty() {
		bpf, err := r.seccompBld.Compile()
		if err != nil {
			return err
		}
		if bpf != nil {
			r.tempFiles = append(r.tempFiles, bpf)
			r.mountOpts = append(r.mountOpts, "--seccomp", strconv.Itoa(r.fdSlot(bpf)))
		}
	}

	r.mountOpts = append(r.mountOpts,
		"--ro-bind", r.paths.DbusSystemSocket, "/var/run/dbus/system_bus_socket",
		"--ro-bind", r.paths.DbusSystemSocket, "/run/dbus/system_bus_socket",
	)

	r.opts.ExtraRawArgs = append([]string{}, r.opts.ExtraRawArgs...)
	r.mountOpts = append(r.mountOpts, r.opts.ExtraRawArgs...)

	return nil
}

// resolveEnvironVar looks up v's value: an explicit Value always wins; an
// unset Value falls back to the launching environment snapshot, and a
// variable absent from both is a configuration error (directive.go:
// "a missing outer variable is a configuration error").
func (r *Runner) resolveEnvironVar(v directive.EnvironVar) (string, error) {
	if v.Value != nil {
		return *v.Value, nil
	}
	if value, ok := r.env.Get(v.Name); ok {
		return value, nil
	}
	return "", bjerrors.New(bjerrors.Configuration, "runner.resolveEnvironVar",
		"environment variable "+v.Name+" is not set in the launching environment")
}

// launchArg is one service's contribution to the target argv; lower
// priority sorts first, ties keep emission order.
type launchArg struct {
	argv     []string
	priority int
}

func sortLaunchArgs(args []launchArg) {
	for i := 1; i < len(args); i++ {
		for j := i; j > 0 && args[j].priority < args[j-1].priority; j-- {
			args[j], args[j-1] = args[j-1], args[j]
		}
	}
}

func (r *Runner) materializeFile(content []byte) (*os.File, error) {
	f, err := os.CreateTemp("", "bubblejail-data-*")
	if err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.materializeFile")
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.materializeFile")
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.materializeFile")
	}
	r.tempFiles = append(r.tempFiles, f)
	return f, nil
}

// fdSlot records f to be passed to the mount helper via ExtraFiles and
// returns the fd number it will have inside the child (3 is --args, fds
// are numbered in passing order starting at 4; see Launch).
func (r *Runner) fdSlot(f *os.File) int {
	r.extraFds = append(r.extraFds, f)
	return 4 + len(r.extraFds) - 1
}

func (r *Runner) dbusSessionRule(arg string) {
	if r.dbusProxy == nil {
		r.dbusProxy = &dbusproxy.Proxy{LogMessages: r.opts.LogDbus}
	}
	r.dbusProxy.AddSessionRule(arg)
}

func (r *Runner) dbusSystemRule(arg string) {
	if r.dbusProxy == nil {
		r.dbusProxy = &dbusproxy.Proxy{LogMessages: r.opts.LogDbus}
	}
	r.dbusProxy.AddSystemRule(arg)
}

// bwrapInfo decodes the mount helper's info-fd payload.
type bwrapInfo struct {
	Pid int `json:"child-pid"`
}

// Launch runs the full process startup sequence, returning the running
// *process.Process on success. On any failure it unwinds everything
// started so far in reverse order and fires a best-effort failure
// notification.
func (r *Runner) Launch(ctx context.Context) (*process.Process, error) {
	proc, err := r.launch(ctx)
	if err != nil {
		r.unwindAll()
		notify.NotifyFailure(fmt.Sprintf("Failed to start %s", r.paths.InstanceName), err.Error())
		return nil, err
	}
	return proc, nil
}

func (r *Runner) unwindAll() {
	for i := len(r.unwind) - 1; i >= 0; i-- {
		r.unwind[i]()
	}
	r.unwind = nil
	r.releaseTempFiles()
}

func (r *Runner) pushUnwind(fn func()) {
	r.unwind = append(r.unwind, fn)
}

func (r *Runner) launch(ctx context.Context) (*process.Process, error) {
	// Step 1: runtime dir, exclusive create. A pre-existing directory
	// means another launch of this instance is already active.
	if err := os.Mkdir(r.paths.RuntimeDir, 0700); err != nil {
		return nil, bjerrors.WrapWithInstance(err, bjerrors.Initialization, "runner.Launch.mkdirRuntimeDir", r.paths.InstanceName)
	}
	r.pushUnwind(func() { os.RemoveAll(r.paths.RuntimeDir) })

	// Step 2: helper runtime dir.
	helperDir := filepath.Dir(r.paths.HelperSocket)
	if err := os.MkdirAll(helperDir, 0700); err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.mkdirHelperDir")
	}

	// Step 3: bind the helper unix socket.
	helperListener, err := bindUnixSocket(r.paths.HelperSocket)
	if err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.bindHelperSocket")
	}
	r.pushUnwind(func() { helperListener.Close() })
	helperFile, err := helperListener.File()
	if err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.helperSocketFile")
	}
	r.closeOnly = append(r.closeOnly, helperFile)

	// Step 4: start D-Bus proxy, blocking on its readiness pipe.
	if r.dbusProxy != nil {
		r.dbusProxy.BinaryPath = r.opts.DbusProxyPath
		r.dbusProxy.SessionBusAddress = r.env.GetOrDefault("DBUS_SESSION_BUS_ADDRESS", "")
		r.dbusProxy.SessionSocketPath = r.paths.DbusSessionSocket
		r.dbusProxy.SystemSocketPath = r.paths.DbusSystemSocket
		if err := r.dbusProxy.Start(); err != nil {
			return nil, err
		}
		r.pushUnwind(func() { r.dbusProxy.Terminate() })
	}

	// Step 5: write mountOpts to a NUL-separated temp file, pass as --args <fd>.
	argsFile, err := r.writeArgsFile()
	if err != nil {
		return nil, err
	}

	// Step 6: build and exec the mount helper. Go's exec.Cmd gives
	// ExtraFiles[i] fd 3+i inside the child, so argsFile (always fd 3, per
	// "--args 3" below) must be ExtraFiles[0]; r.extraFds follow at the fd
	// numbers fdSlot already baked into mountOpts (--ro-bind-data/--seccomp),
	// and the helper socket, optional ready-fd, and info-fd are appended
	// last, each numbered by its own position in the growing slice.
	infoRead, infoWrite, err := os.Pipe()
	if err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.infoPipe")
	}
	defer infoWrite.Close()

	var readyRead, readyWrite *os.File
	hasPostInit := len(r.container.PostInitHooks()) > 0
	if hasPostInit {
		readyRead, readyWrite, err = os.Pipe()
		if err != nil {
			return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.readyPipe")
		}
	}

	extraFiles := append([]*os.File{argsFile}, r.extraFds...)

	helperSocketFd := 3 + len(extraFiles)
	extraFiles = append(extraFiles, helperFile)

	helperArgv := []string{r.opts.HelperPath, "--helper-socket", strconv.Itoa(helperSocketFd)}
	if hasPostInit {
		readyFd := 3 + len(extraFiles)
		extraFiles = append(extraFiles, readyRead)
		helperArgv = append(helperArgv, "--ready-fd", strconv.Itoa(readyFd))
	}
	if r.opts.ShellDebug {
		helperArgv = append(helperArgv, "--shell")
	}
	helperArgv = append(helperArgv, "--")
	helperArgv = append(helperArgv, r.execArgv...)

	infoFd := 3 + len(extraFiles)
	extraFiles = append(extraFiles, infoWrite)

	bwrapArgv := []string{"--args", "3", "--info-fd", strconv.Itoa(infoFd), "--"}
	bwrapArgv = append(bwrapArgv, helperArgv...)

	cmd := exec.Command(r.opts.BwrapPath, bwrapArgv...)
	cmd.ExtraFiles = extraFiles
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Dependency, "runner.Launch.exec")
	}
	proc := process.NewProcess(cmd)
	r.pushUnwind(func() { proc.Kill() })

	// Step 7: read info-fd until EOF, extract child-pid.
	infoWrite.Close()
	var info bwrapInfo
	decodeErrCh := make(chan error, 1)
	go func() {
		decodeErrCh <- json.NewDecoder(infoRead).Decode(&info)
	}()
	select {
	case err := <-decodeErrCh:
		if err != nil {
			return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.readInfoFd")
		}
	case <-time.After(infoFdTimeout):
		return nil, bjerrors.New(bjerrors.Initialization, "runner.Launch.readInfoFd", "timed out waiting for info-fd")
	}
	if err := proc.SetSandboxedPID(info.Pid); err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.setSandboxedPID")
	}

	// Step 8: run post-init hooks sequentially.
	for _, d := range r.container.PostInitHooks() {
		hookCtx, cancel := context.WithTimeout(ctx, infoFdTimeout)
		err := d.PostInitHook(hookCtx, info.Pid, r.container.Config, r.log)
		cancel()
		if err != nil {
			return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.postInit."+d.Name)
		}
	}

	// Step 9: signal readiness.
	if hasPostInit {
		if _, err := readyWrite.Write([]byte("bubblejail-ready")); err != nil {
			return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.Launch.writeReadyToken")
		}
		readyWrite.Close()
	}

	// Step 10: release temp-file handles now that the mount helper has
	// them open via the inherited fds.
	r.releaseTempFiles()
	infoRead.Close()
	if hasPostInit {
		readyRead.Close()
	}

	proc.AddTermHook(func() {
		for _, d := range r.container.PostShutdownHooks() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), infoFdTimeout)
			if err := d.PostShutdownHook(shutdownCtx, r.container.Config, r.log); err != nil {
				r.log.Warnf("runner: post-shutdown hook %s failed: %v", d.Name, err)
			}
			cancel()
		}
		if r.dbusProxy != nil {
			r.dbusProxy.Terminate()
		}
		helperListener.Close()
		os.RemoveAll(r.paths.RuntimeDir)
	})

	// Unwind actions are no longer needed: from here on, failures are the
	// caller's responsibility via proc's own lifecycle.
	r.unwind = nil
	return proc, nil
}

// Wait blocks for the mount helper to exit and surfaces a non-zero exit as
// a Run error; post-shutdown hooks run via the term hook installed in
// Launch.
func (r *Runner) Wait(proc *process.Process) error {
	err := proc.Wait()
	if err != nil {
		return bjerrors.WrapWithInstance(err, bjerrors.Run, "runner.Wait", r.paths.InstanceName)
	}
	if code := proc.ExitCode(); code != 0 {
		return bjerrors.WrapWithInstance(fmt.Errorf("mount helper exited with code %d", code),
			bjerrors.Run, "runner.Wait", r.paths.InstanceName)
	}
	return nil
}

// Terminate cancels a launch: SIGTERM to the sandboxed PID (or mount
// helper if not yet known), escalating to SIGKILL after terminationGrace.
func (r *Runner) Terminate(proc *process.Process) {
	proc.TerminateWithGrace(terminationGrace)
}

// releaseTempFiles closes every fd handed to the mount helper (args,
// seccomp BPF, file-transfer contents, the dup'd helper socket), unlinking
// the anonymous temp files among them; bwrap already holds its own
// inherited copy of each fd by the time this runs.
func (r *Runner) releaseTempFiles() {
	for _, f := range r.tempFiles {
		f.Close()
		os.Remove(f.Name())
	}
	r.tempFiles = nil
	for _, f := range r.closeOnly {
		f.Close()
	}
	r.closeOnly = nil
}

// bindUnixSocket creates and binds a unix-stream listener at path. The
// runtime directory is created exclusively in step 1, so path is
// guaranteed not to already exist.
func bindUnixSocket(path string) (*net.UnixListener, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, err
	}
	return net.ListenUnix("unix", addr)
}

func (r *Runner) writeArgsFile() (*os.File, error) {
	f, err := os.CreateTemp("", "bubblejail-args-*")
	if err != nil {
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.writeArgsFile")
	}
	for _, arg := range r.mountOpts {
		if _, err := f.WriteString(arg); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.writeArgsFile")
		}
		if _, err := f.Write([]byte{0}); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.writeArgsFile")
		}
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, bjerrors.Wrap(err, bjerrors.Initialization, "runner.writeArgsFile")
	}
	r.tempFiles = append(r.tempFiles, f)
	return f, nil
}
