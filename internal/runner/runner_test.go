// runner_test.go - Launch pipeline argument tests.
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

package runner

import (
	"reflect"
	"testing"

	"github.com/igo95862/bubblejail-sub000/internal/environment"
	"github.com/igo95862/bubblejail-sub000/internal/services"
)

func testSnapshot() *environment.Snapshot {
	return environment.New(map[string]string{
		"USER":                               "alice",
		"USERNAME":                           "alice",
		"HOME":                               "/home/alice",
		"PATH":                               "/usr/bin:/bin",
		"XDG_RUNTIME_DIR":                    "/run/user/1000",
		"LANG":                               "en_US.UTF-8",
		"DISPLAY":                            ":0",
		"BUBBLEJAIL_DISABLE_SECCOMP_DEFAULTS": "1",
	})
}

func testPaths() Paths {
	return Paths{
		InstanceName:      "myapp",
		HomePath:          "/data/instances/myapp/home",
		RuntimeDir:        "/run/user/1000/bubblejail/myapp",
		HelperSocket:      "/run/user/1000/bubblejail/myapp/helper/helper.socket",
		DbusSessionSocket: "/run/user/1000/bubblejail/myapp/dbus_session_proxy",
		DbusSystemSocket:  "/run/user/1000/bubblejail/myapp/dbus_system_proxy",
	}
}

func testContainer(t *testing.T) *services.Container {
	t.Helper()
	cfg := &services.ServicesConfig{
		Common: &services.CommonSettings{ExecutableArgs: []string{"echo", "hi"}},
		X11:    true,
	}
	c, err := services.NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	return c
}

// GenerateArgs must be idempotent across two otherwise-identical Runners
// built from the same configuration.
func TestGenerateArgsIsIdempotent(t *testing.T) {
	r1 := New(testPaths(), Options{}, testContainer(t), testSnapshot(), nil)
	if err := r1.GenerateArgs(); err != nil {
		t.Fatalf("GenerateArgs (1): %v", err)
	}

	r2 := New(testPaths(), Options{}, testContainer(t), testSnapshot(), nil)
	if err := r2.GenerateArgs(); err != nil {
		t.Fatalf("GenerateArgs (2): %v", err)
	}

	if !reflect.DeepEqual(r1.mountOpts, r2.mountOpts) {
		t.Fatalf("mountOpts differ across identical configurations:\n%v\n%v", r1.mountOpts, r2.mountOpts)
	}
	if !reflect.DeepEqual(r1.execArgv, r2.execArgv) {
		t.Fatalf("execArgv differ across identical configurations:\n%v\n%v", r1.execArgv, r2.execArgv)
	}
}

func TestGenerateArgsIncludesPreambleAndExecArgv(t *testing.T) {
	r := New(testPaths(), Options{}, testContainer(t), testSnapshot(), nil)
	if err := r.GenerateArgs(); err != nil {
		t.Fatalf("GenerateArgs: %v", err)
	}
	want := []string{"--unshare-all", "--die-with-parent", "--as-pid-1", "--new-session", "--proc", "/proc", "--dev", "/dev", "--clearenv"}
	if len(r.mountOpts) < len(want) {
		t.Fatalf("mountOpts too short: %v", r.mountOpts)
	}
	for i, w := range want {
		if r.mountOpts[i] != w {
			t.Fatalf("mountOpts[%d] = %q, want %q (full: %v)", i, r.mountOpts[i], w, r.mountOpts)
		}
	}
	if got, want := r.execArgv, []string{"echo", "hi"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("execArgv = %v, want %v", got, want)
	}
}

func TestGenerateArgsFailsWithNoExecutableArgs(t *testing.T) {
	cfg := &services.ServicesConfig{X11: true}
	c, err := services.NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	r := New(testPaths(), Options{}, c, testSnapshot(), nil)
	if err := r.GenerateArgs(); err == nil {
		t.Fatalf("expected an error when no service contributes executable arguments")
	}
}

func TestGenerateArgsShellDebugOmitsNewSession(t *testing.T) {
	r := New(testPaths(), Options{ShellDebug: true}, testContainer(t), testSnapshot(), nil)
	if err := r.GenerateArgs(); err != nil {
		t.Fatalf("GenerateArgs: %v", err)
	}
	for _, a := range r.mountOpts {
		if a == "--new-session" {
			t.Fatalf("--new-session must be omitted under shell-debug, got %v", r.mountOpts)
		}
	}
}
