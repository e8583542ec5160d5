// defaults.go - Default sandbox policy service.
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

package services

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
	"github.com/igo95862/bubblejail-sub000/internal/seccomp"
)

// defaultsDescriptor is the always-first, non-selectable defaults
// service.
var defaultsDescriptor = Descriptor{
	Name:        "default",
	PrettyName:  "Default settings",
	Description: "Base filesystem, environment, and seccomp policy shared by every instance",
	Enabled:     func(*ServicesConfig) bool { return true },
	Iter:        defaultsIter,
}

func isSymlink(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}

func defaultsIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()

	b.Add(directive.ReadOnlyBind{Source: "/usr"})
	b.Add(directive.ReadOnlyBind{Source: "/opt"})
	b.Add(directive.ReadOnlyBind{Source: "/etc"})

	for _, top := range []string{"/bin", "/sbin", "/lib", "/lib32", "/lib64"} {
		if _, err := os.Lstat(top); err != nil {
			continue
		}
		if isSymlink(top) {
			if target, err := os.Readlink(top); err == nil {
				b.Add(directive.Symlink{Target: target, Linkname: top})
			}
		} else {
			b.Add(directive.ReadOnlyBind{Source: top})
		}
	}

	b.Add(directive.DirCreate{Path: "/tmp"})
	b.Add(directive.DirCreate{Path: "/var"})

	// /sys itself stays private; its immediate children are created so
	// binds below them have mount points.
	b.Add(directive.DirCreate{Path: "/sys", Perm: intPtr(0o700)})
	for _, sysChild := range []string{"/sys/block", "/sys/bus", "/sys/class", "/sys/dev", "/sys/devices"} {
		b.Add(directive.DirCreate{Path: sysChild, Perm: intPtr(0o755)})
	}
	b.Add(directive.ReadOnlyBind{Source: "/sys/devices/system/cpu"})

	uid := os.Getuid()
	runDir := filepathJoinUser(uid)
	b.Add(directive.DirCreate{Path: runDir})

	b.AddHomeBindRequest(func(home string) []directive.Directive {
		u, err := user.Current()
		realHome := "/home/user"
		if err == nil && u.HomeDir != "" {
			realHome = u.HomeDir
		}
		ds := []directive.Directive{
			directive.Bind{Source: home, Dest: realHome},
			directive.ChangeDir{Path: realHome},
		}
		if realHome != "/home/user" {
			ds = append(ds, directive.Symlink{Target: realHome, Linkname: "/home/user"})
		}
		return ds
	})

	b.Add(directive.EnvironVar{Name: "USER"})
	b.Add(directive.EnvironVar{Name: "USERNAME"})
	b.Add(directive.EnvironVar{Name: "HOME"})
	b.Add(directive.EnvironVar{Name: "PATH", Value: strPtr(generatePathVar(env))})
	b.Add(directive.EnvironVar{Name: "XDG_RUNTIME_DIR"})
	b.Add(directive.EnvironVar{Name: "LANG"})

	if v, _ := env.Get("BUBBLEJAIL_DISABLE_SECCOMP_DEFAULTS"); v == "" {
		for _, rule := range seccomp.DefaultBlocklist() {
			b.Add(directive.SeccompSyscallErrno{
				Name:          rule.Syscall,
				Errno:         rule.Errno,
				SkipOnMissing: rule.SkipOnMissing,
			})
		}
	}

	b.AddDbusSessionBindRequest(func(sessionSocketPath string) []directive.Directive {
		busPath := "/run/user/" + strconv.Itoa(uid) + "/bus"
		return []directive.Directive{
			directive.Bind{Source: sessionSocketPath, Dest: busPath},
			directive.EnvironVar{Name: "DBUS_SESSION_BUS_ADDRESS", Value: strPtr("unix:path=" + busPath)},
		}
	})

	return b.Build()
}

func filepathJoinUser(uid int) string {
	return filepath.Join("/run/user", strconv.Itoa(uid))
}

// generatePathVar filters the host PATH down to /usr-prefixed entries plus
// the bare /bin and /sbin, keeping host-specific and user-writable
// directories out of the sandboxed PATH.
func generatePathVar(env *environment.Snapshot) string {
	var kept []string
	for _, entry := range strings.Split(env.GetOrDefault("PATH", ""), ":") {
		if strings.HasPrefix(entry, "/usr/") || entry == "/bin" || entry == "/sbin" {
			kept = append(kept, entry)
		}
	}
	return strings.Join(kept, ":")
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }
