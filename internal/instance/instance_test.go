// instance_test.go - Instance path and RPC tests.
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

package instance

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/igo95862/bubblejail-sub000/internal/environment"
)

func testEnv(runtimeDir string) *environment.Snapshot {
	env := environment.FromOS()
	env.XDGRuntimeDir = runtimeDir
	return env
}

func TestNewResolvesPaths(t *testing.T) {
	dataRoot := t.TempDir()
	runtimeRoot := t.TempDir()

	inst := New("firefox", dataRoot, testEnv(runtimeRoot))

	if got, want := inst.HomePath(), filepath.Join(dataRoot, "firefox", "home"); got != want {
		t.Fatalf("HomePath() = %q, want %q", got, want)
	}
	if got, want := inst.PathServicesFile(), filepath.Join(dataRoot, "firefox", "services.toml"); got != want {
		t.Fatalf("PathServicesFile() = %q, want %q", got, want)
	}
	if got, want := inst.PathMetadataFile(), filepath.Join(dataRoot, "firefox", "metadata_v1.toml"); got != want {
		t.Fatalf("PathMetadataFile() = %q, want %q", got, want)
	}
	if got, want := inst.RuntimeDir(), filepath.Join(runtimeRoot, "bubblejail", "firefox"); got != want {
		t.Fatalf("RuntimeDir() = %q, want %q", got, want)
	}
	if got, want := inst.HelperSocketPath(), filepath.Join(runtimeRoot, "bubblejail", "firefox", "helper", "helper.socket"); got != want {
		t.Fatalf("HelperSocketPath() = %q, want %q", got, want)
	}
}

func TestNewFallsBackToUidRuntimeDir(t *testing.T) {
	dataRoot := t.TempDir()
	env := environment.FromOS()
	env.XDGRuntimeDir = ""

	inst := New("firefox", dataRoot, env)
	want := filepath.Join("/run/user", fmt.Sprint(os.Getuid()), "bubblejail", "firefox")
	if inst.RuntimeDir() != want {
		t.Fatalf("RuntimeDir() = %q, want %q", inst.RuntimeDir(), want)
	}
}

func TestRunnerPathsProjection(t *testing.T) {
	dataRoot := t.TempDir()
	runtimeRoot := t.TempDir()
	inst := New("firefox", dataRoot, testEnv(runtimeRoot))

	p := inst.RunnerPaths()
	if p.InstanceName != "firefox" {
		t.Fatalf("InstanceName = %q", p.InstanceName)
	}
	if p.HomePath != inst.HomePath() {
		t.Fatalf("HomePath mismatch")
	}
	if p.DbusSessionSocket != inst.DbusSessionProxyPath() {
		t.Fatalf("DbusSessionSocket mismatch")
	}
	if p.DbusSystemSocket != inst.DbusSystemProxyPath() {
		t.Fatalf("DbusSystemSocket mismatch")
	}
}

func TestIsRunning(t *testing.T) {
	dataRoot := t.TempDir()
	runtimeRoot := t.TempDir()
	inst := New("firefox", dataRoot, testEnv(runtimeRoot))

	if inst.IsRunning() {
		t.Fatalf("IsRunning() = true before socket exists")
	}

	socketDir := filepath.Dir(inst.HelperSocketPath())
	if err := os.MkdirAll(socketDir, 0700); err != nil {
		t.Fatalf("setup: %v", err)
	}
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: inst.HelperSocketPath(), Net: "unix"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer l.Close()

	if !inst.IsRunning() {
		t.Fatalf("IsRunning() = false with a live socket")
	}
}

func TestReadServicesRejectsUnknownService(t *testing.T) {
	dataRoot := t.TempDir()
	inst := New("firefox", dataRoot, testEnv(t.TempDir()))

	_, err := inst.ReadServices(map[string]map[string]any{
		"does_not_exist": {},
	})
	if err == nil {
		t.Fatalf("expected an error for an unknown service")
	}
}

func TestReadServicesAcceptsKnownService(t *testing.T) {
	dataRoot := t.TempDir()
	inst := New("firefox", dataRoot, testEnv(t.TempDir()))

	container, err := inst.ReadServices(map[string]map[string]any{
		"x11": {},
	})
	if err != nil {
		t.Fatalf("ReadServices() error = %v", err)
	}
	if container == nil {
		t.Fatalf("ReadServices() returned a nil container")
	}
}

func TestWriteMetadataAtomic(t *testing.T) {
	dataRoot := t.TempDir()
	inst := New("firefox", dataRoot, testEnv(t.TempDir()))
	if err := os.MkdirAll(filepath.Join(dataRoot, "firefox"), 0700); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := inst.WriteMetadataAtomic([]byte("creation_profile_name = \"firefox\"\n")); err != nil {
		t.Fatalf("WriteMetadataAtomic() error = %v", err)
	}

	got, err := os.ReadFile(inst.PathMetadataFile())
	if err != nil {
		t.Fatalf("reading written metadata: %v", err)
	}
	if string(got) != "creation_profile_name = \"firefox\"\n" {
		t.Fatalf("written metadata = %q", got)
	}
}

func TestReadMetadata(t *testing.T) {
	m := ReadMetadata(map[string]any{
		"creation_profile_name": "firefox",
		"desktop_entry_name":    "firefox.desktop",
	})
	if m.CreationProfileName != "firefox" || m.DesktopEntryName != "firefox.desktop" {
		t.Fatalf("ReadMetadata() = %+v", m)
	}

	empty := ReadMetadata(map[string]any{})
	if empty.CreationProfileName != "" || empty.DesktopEntryName != "" {
		t.Fatalf("ReadMetadata(empty) = %+v", empty)
	}
}
