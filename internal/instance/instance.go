// instance.go - Instance on-disk identity and runtime layout.
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

// Package instance models one named sandbox instance's on-disk identity
// and runtime layout: its path layout, the services configuration
// read/save pair, and the unix-socket RPC client for an already-running
// helper.
package instance

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	xdg "github.com/cep21/xdgbasedir"

	"github.com/igo95862/bubblejail-sub000/internal/bjerrors"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
	"github.com/igo95862/bubblejail-sub000/internal/runner"
	"github.com/igo95862/bubblejail-sub000/internal/services"
)

// runRpcTimeout bounds Instance.SendRunRPC.
const runRpcTimeout = 3 * time.Second

// Metadata is the optional metadata_v1.toml payload.
type Metadata struct {
	CreationProfileName string `toml:"creation_profile_name,omitempty"`
	DesktopEntryName    string `toml:"desktop_entry_name,omitempty"`
}

// Instance is one named sandbox's on-disk identity.
type Instance struct {
	Name string

	dataDir    string // <data>/instances/<name>
	runtimeDir string // <runtime>/bubblejail/<name>
}

// DataRoot resolves the instances root directory under XDG_DATA_HOME via
// xdgbasedir.
func DataRoot() (string, error) {
	home, err := xdg.DataHomeDirectory()
	if err != nil {
		return "", bjerrors.Wrap(err, bjerrors.Initialization, "instance.DataRoot")
	}
	return filepath.Join(home, "bubblejail", "instances"), nil
}

// New builds an Instance for name, rooted at dataRoot (see DataRoot) and
// under <runtime>/bubblejail/<name> for the runtime directory, where
// runtime is the launching environment's XDG_RUNTIME_DIR.
func New(name, dataRoot string, env *environment.Snapshot) *Instance {
	runtimeRoot := env.XDGRuntimeDir
	if runtimeRoot == "" {
		runtimeRoot = filepath.Join("/run/user", fmt.Sprint(os.Getuid()))
	}
	return &Instance{
		Name:       name,
		dataDir:    filepath.Join(dataRoot, name),
		runtimeDir: filepath.Join(runtimeRoot, "bubblejail", name),
	}
}

// HomePath is the instance's private home directory.
func (i *Instance) HomePath() string { return filepath.Join(i.dataDir, "home") }

// PathServicesFile is services.toml's path.
func (i *Instance) PathServicesFile() string { return filepath.Join(i.dataDir, "services.toml") }

// PathMetadataFile is metadata_v1.toml's path.
func (i *Instance) PathMetadataFile() string { return filepath.Join(i.dataDir, "metadata_v1.toml") }

// RuntimeDir is <runtime>/bubblejail/<name>.
func (i *Instance) RuntimeDir() string { return i.runtimeDir }

// HelperSocketPath is the in-sandbox helper's advertised unix socket.
func (i *Instance) HelperSocketPath() string {
	return filepath.Join(i.runtimeDir, "helper", "helper.socket")
}

// DbusSessionProxyPath is the session-bus proxy's outside-sandbox socket.
func (i *Instance) DbusSessionProxyPath() string {
	return filepath.Join(i.runtimeDir, "dbus_session_proxy")
}

// DbusSystemProxyPath is the system-bus proxy's outside-sandbox socket.
func (i *Instance) DbusSystemProxyPath() string {
	return filepath.Join(i.runtimeDir, "dbus_system_proxy")
}

// RunnerPaths projects this instance onto the narrow runner.Paths shape the
// launch pipeline needs.
func (i *Instance) RunnerPaths() runner.Paths {
	return runner.Paths{
		InstanceName:      i.Name,
		HomePath:          i.HomePath(),
		RuntimeDir:        i.runtimeDir,
		HelperSocket:      i.HelperSocketPath(),
		DbusSessionSocket: i.DbusSessionProxyPath(),
		DbusSystemSocket:  i.DbusSystemProxyPath(),
	}
}

// ReadServices structures raw (the already-TOML-decoded services.toml
// table an external collaborator handed over) into a validated
// *services.Container.
func (i *Instance) ReadServices(raw map[string]map[string]any) (*services.Container, error) {
	cfg, err := services.Decode(raw)
	if err != nil {
		return nil, bjerrors.WrapWithInstance(err, bjerrors.Configuration, "instance.ReadServices", i.Name)
	}
	return services.NewContainer(cfg)
}

// SaveServices unstructures cfg with default-omission for a TOML-capable
// collaborator to serialize to PathServicesFile.
func (i *Instance) SaveServices(cfg *services.ServicesConfig) map[string]map[string]any {
	return services.Encode(cfg)
}

// IsRunning reports whether the helper socket exists and is a socket
// file.
func (i *Instance) IsRunning() bool {
	fi, err := os.Stat(i.HelperSocketPath())
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeSocket != 0
}

// SendRunRPC opens the helper socket and sends a "run" request with argv,
// optionally waiting up to runRpcTimeout for a single reply (the captured
// stdout/stderr of the spawned command).
func (i *Instance) SendRunRPC(argv []string, wait bool) (string, error) {
	conn, err := net.DialTimeout("unix", i.HelperSocketPath(), runRpcTimeout)
	if err != nil {
		return "", bjerrors.WrapWithInstance(err, bjerrors.Rpc, "instance.SendRunRPC", i.Name)
	}
	defer conn.Close()

	id := "1"
	req := struct {
		ID     *string `json:"id"`
		Method string  `json:"method"`
		Params struct {
			ArgsToRun    []string `json:"args_to_run"`
			WaitResponse bool     `json:"wait_response"`
		} `json:"params"`
	}{ID: &id, Method: "run"}
	req.Params.ArgsToRun = argv
	req.Params.WaitResponse = wait

	line, err := json.Marshal(req)
	if err != nil {
		return "", bjerrors.WrapWithInstance(err, bjerrors.Rpc, "instance.SendRunRPC", i.Name)
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return "", bjerrors.WrapWithInstance(err, bjerrors.Rpc, "instance.SendRunRPC", i.Name)
	}
	if !wait {
		return "", nil
	}

	conn.SetReadDeadline(time.Now().Add(runRpcTimeout))
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		err := scanner.Err()
		if err == nil {
			err = fmt.Errorf("helper closed connection without responding")
		}
		return "", bjerrors.WrapWithInstance(err, bjerrors.Rpc, "instance.SendRunRPC", i.Name)
	}

	var resp struct {
		Result struct {
			Return string `json:"return"`
		} `json:"result"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return "", bjerrors.WrapWithInstance(err, bjerrors.Rpc, "instance.SendRunRPC", i.Name)
	}
	return resp.Result.Return, nil
}

// ReadMetadata reads raw (already-TOML-decoded metadata_v1.toml) into a
// Metadata, tolerating a missing file since metadata is optional.
func ReadMetadata(raw map[string]any) Metadata {
	var m Metadata
	if v, ok := raw["creation_profile_name"].(string); ok {
		m.CreationProfileName = v
	}
	if v, ok := raw["desktop_entry_name"].(string); ok {
		m.DesktopEntryName = v
	}
	return m
}

// WriteMetadataAtomic writes raw TOML-collaborator-produced bytes to
// PathMetadataFile via write-temp-then-rename.
func (i *Instance) WriteMetadataAtomic(encoded []byte) error {
	tmp, err := os.CreateTemp(i.dataDir, "metadata_v1.toml.*.tmp")
	if err != nil {
		return bjerrors.WrapWithInstance(err, bjerrors.Initialization, "instance.WriteMetadataAtomic", i.Name)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return bjerrors.WrapWithInstance(err, bjerrors.Initialization, "instance.WriteMetadataAtomic", i.Name)
	}
	if err := tmp.Close(); err != nil {
		return bjerrors.WrapWithInstance(err, bjerrors.Initialization, "instance.WriteMetadataAtomic", i.Name)
	}
	if err := os.Rename(tmp.Name(), i.PathMetadataFile()); err != nil {
		return bjerrors.WrapWithInstance(err, bjerrors.Initialization, "instance.WriteMetadataAtomic", i.Name)
	}
	return nil
}
