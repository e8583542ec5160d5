// decode.go - Service configuration decoding and encoding.
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

// Decode and Encode convert between the services.toml-shaped table and
// ServicesConfig, rejecting unknown keys on the way in and omitting
// default-valued settings on the way out. Neither function parses TOML
// itself: both operate purely on the map[string]map[string]any shape a
// TOML decoder hands back.
package services

import "github.com/igo95862/bubblejail-sub000/internal/bjerrors"

// Decode structures a raw services.toml-shaped table into a ServicesConfig,
// rejecting any top-level service name or per-service key the catalog does
// not recognize (the forbid-extra-keys invariant).
func Decode(raw map[string]map[string]any) (*ServicesConfig, error) {
	cfg := &ServicesConfig{}

	for name, table := range raw {
		switch name {
		case "common":
			s := &CommonSettings{}
			for k, v := range table {
				switch k {
				case "executable_args":
					args, err := decodeStringOrList(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.ExecutableArgs = args
				case "share_local_time":
					b, err := decodeBool(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.ShareLocalTime = b
				default:
					return nil, unknownKey(name, k)
				}
			}
			cfg.Common = s
		case "x11":
			cfg.X11 = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "wayland":
			cfg.Wayland = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "network":
			cfg.Network = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "pulse_audio":
			cfg.PulseAudio = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "systray":
			cfg.Systray = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "joystick":
			cfg.Joystick = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "openjdk":
			cfg.OpenJDK = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "notify":
			cfg.Notify = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "pipewire":
			cfg.Pipewire = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "v4l":
			cfg.V4L = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "ibus":
			cfg.IBus = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "fcitx":
			cfg.Fcitx = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "gamemode":
			cfg.GameMode = true
			if err := rejectKeys(name, table); err != nil {
				return nil, err
			}
		case "home_share":
			s := &HomeShareSettings{}
			for k, v := range table {
				if k != "home_paths" {
					return nil, unknownKey(name, k)
				}
				paths, err := decodeStringSlice(v)
				if err != nil {
					return nil, decodeErr(name, k, err)
				}
				s.Paths = paths
			}
			cfg.HomeShare = s
		case "direct_rendering":
			s := &DirectRenderingSettings{}
			for k, v := range table {
				if k != "enable_aco" {
					return nil, unknownKey(name, k)
				}
				b, err := decodeBool(v)
				if err != nil {
					return nil, decodeErr(name, k, err)
				}
				s.EnableACO = b
			}
			cfg.DirectRendering = s
		case "root_share":
			s := &RootShareSettings{}
			for k, v := range table {
				switch k {
				case "paths":
					paths, err := decodeStringSlice(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.Paths = paths
				case "read_only_paths":
					paths, err := decodeStringSlice(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.ReadOnlyPaths = paths
				default:
					return nil, unknownKey(name, k)
				}
			}
			cfg.RootShare = s
		case "gnome_toolkit":
			s := &GnomeToolkitSettings{}
			for k, v := range table {
				switch k {
				case "gnome_portal", "dconf_dbus", "gnome_vfs_dbus", "xdg_directories":
					b, err := decodeBool(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					if k == "xdg_directories" {
						s.XdgDirectories = b
					}
				default:
					return nil, unknownKey(name, k)
				}
			}
			cfg.GnomeToolkit = s
		case "slirp4netns":
			s := DefaultSlirp4netnsSettings()
			for k, v := range table {
				switch k {
				case "dns_servers":
					servers, err := decodeStringSlice(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.DNSServers = servers
				case "outbound_addr":
					addr, err := decodeString(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.OutboundAddr = addr
				case "disable_host_loopback":
					b, err := decodeBool(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.DisableHostLoopback = b
				default:
					return nil, unknownKey(name, k)
				}
			}
			cfg.Slirp4netns = s
		case "namespaces_limits":
			s := DefaultNamespacesLimitsSettings()
			for k, v := range table {
				n, err := decodeInt(v)
				if err != nil {
					return nil, decodeErr(name, k, err)
				}
				switch k {
				case "user":
					s.User = n
				case "mount":
					s.Mount = n
				case "pid":
					s.Pid = n
				case "uts":
					s.Uts = n
				case "net":
					s.Net = n
				case "ipc":
					s.Ipc = n
				case "cgroup":
					s.Cgroup = n
				default:
					return nil, unknownKey(name, k)
				}
			}
			cfg.NamespacesLimits = s
		case "debug":
			s := &DebugSettings{}
			for k, v := range table {
				switch k {
				case "raw_bwrap_args":
					args, err := decodeStringSlice(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.BwrapArgs = args
				case "raw_dbus_session_args":
					args, err := decodeStringSlice(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.DbusSessionArgs = args
				case "raw_dbus_system_args":
					args, err := decodeStringSlice(v)
					if err != nil {
						return nil, decodeErr(name, k, err)
					}
					s.DbusSystemArgs = args
				default:
					return nil, unknownKey(name, k)
				}
			}
			cfg.Debug = s
		case "pasta_network":
			s := &PastaNetworkSettings{}
			for k, v := range table {
				if k != "extra_args" {
					return nil, unknownKey(name, k)
				}
				args, err := decodeStringSlice(v)
				if err != nil {
					return nil, decodeErr(name, k, err)
				}
				s.ExtraArgs = args
			}
			cfg.PastaNetwork = s
		case "mpris":
			s := &MprisSettings{}
			for k, v := range table {
				if k != "app_id" {
					return nil, unknownKey(name, k)
				}
				str, err := decodeString(v)
				if err != nil {
					return nil, decodeErr(name, k, err)
				}
				s.AppID = str
			}
			cfg.Mpris = s
		case "xdg_desktop_portal":
			s := &XdgDesktopPortalSettings{}
			for k, v := range table {
				b, err := decodeBool(v)
				if err != nil {
					return nil, decodeErr(name, k, err)
				}
				switch k {
				case "file_chooser":
					s.FileChooser = b
				case "screenshot":
					s.Screenshot = b
				case "screen_cast":
					s.ScreenCast = b
				case "background":
					s.Background = b
				case "settings":
					s.Settings = b
				default:
					return nil, unknownKey(name, k)
				}
			}
			cfg.XdgDesktopPortal = s
		default:
			return nil, bjerrors.New(bjerrors.Configuration, "services.Decode", "unknown service: "+name)
		}
	}

	if _, err := NewContainer(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode unstructures cfg back into the services.toml-shaped table,
// omitting any service whose settings equal their zero/default value so
// that a decode-encode-decode round trip is stable.
func Encode(cfg *ServicesConfig) map[string]map[string]any {
	out := map[string]map[string]any{}

	if cfg.Common != nil {
		t := map[string]any{}
		if len(cfg.Common.ExecutableArgs) > 0 {
			t["executable_args"] = cfg.Common.ExecutableArgs
		}
		if cfg.Common.ShareLocalTime {
			t["share_local_time"] = true
		}
		out["common"] = t
	}

	addFlag := func(name string, enabled bool) {
		if enabled {
			out[name] = map[string]any{}
		}
	}
	addFlag("x11", cfg.X11)
	addFlag("wayland", cfg.Wayland)
	addFlag("network", cfg.Network)
	addFlag("pulse_audio", cfg.PulseAudio)
	addFlag("systray", cfg.Systray)
	addFlag("joystick", cfg.Joystick)
	addFlag("openjdk", cfg.OpenJDK)
	addFlag("notify", cfg.Notify)
	addFlag("pipewire", cfg.Pipewire)
	addFlag("v4l", cfg.V4L)
	addFlag("ibus", cfg.IBus)
	addFlag("fcitx", cfg.Fcitx)
	addFlag("gamemode", cfg.GameMode)

	if cfg.HomeShare != nil {
		t := map[string]any{}
		if len(cfg.HomeShare.Paths) > 0 {
			t["home_paths"] = cfg.HomeShare.Paths
		}
		out["home_share"] = t
	}
	if cfg.DirectRendering != nil {
		t := map[string]any{}
		if cfg.DirectRendering.EnableACO {
			t["enable_aco"] = true
		}
		out["direct_rendering"] = t
	}
	if cfg.RootShare != nil {
		t := map[string]any{}
		if len(cfg.RootShare.Paths) > 0 {
			t["paths"] = cfg.RootShare.Paths
		}
		if len(cfg.RootShare.ReadOnlyPaths) > 0 {
			t["read_only_paths"] = cfg.RootShare.ReadOnlyPaths
		}
		out["root_share"] = t
	}
	if cfg.GnomeToolkit != nil {
		t := map[string]any{}
		if cfg.GnomeToolkit.XdgDirectories {
			t["xdg_directories"] = true
		}
		out["gnome_toolkit"] = t
	}
	if cfg.Slirp4netns != nil {
		s := cfg.Slirp4netns
		t := map[string]any{}
		if len(s.DNSServers) > 0 {
			t["dns_servers"] = s.DNSServers
		}
		if s.OutboundAddr != "" {
			t["outbound_addr"] = s.OutboundAddr
		}
		if !s.DisableHostLoopback {
			t["disable_host_loopback"] = false
		}
		out["slirp4netns"] = t
	}
	if cfg.NamespacesLimits != nil {
		s := cfg.NamespacesLimits
		def := DefaultNamespacesLimitsSettings()
		t := map[string]any{}
		addIfDiff := func(k string, v, dv int) {
			if v != dv {
				t[k] = v
			}
		}
		addIfDiff("user", s.User, def.User)
		addIfDiff("mount", s.Mount, def.Mount)
		addIfDiff("pid", s.Pid, def.Pid)
		addIfDiff("uts", s.Uts, def.Uts)
		addIfDiff("net", s.Net, def.Net)
		addIfDiff("ipc", s.Ipc, def.Ipc)
		addIfDiff("cgroup", s.Cgroup, def.Cgroup)
		out["namespaces_limits"] = t
	}
	if cfg.Debug != nil {
		s := cfg.Debug
		t := map[string]any{}
		if len(s.BwrapArgs) > 0 {
			t["raw_bwrap_args"] = s.BwrapArgs
		}
		if len(s.DbusSessionArgs) > 0 {
			t["raw_dbus_session_args"] = s.DbusSessionArgs
		}
		if len(s.DbusSystemArgs) > 0 {
			t["raw_dbus_system_args"] = s.DbusSystemArgs
		}
		out["debug"] = t
	}
	if cfg.PastaNetwork != nil {
		t := map[string]any{}
		if len(cfg.PastaNetwork.ExtraArgs) > 0 {
			t["extra_args"] = cfg.PastaNetwork.ExtraArgs
		}
		out["pasta_network"] = t
	}
	if cfg.Mpris != nil {
		t := map[string]any{}
		if cfg.Mpris.AppID != "" {
			t["app_id"] = cfg.Mpris.AppID
		}
		out["mpris"] = t
	}
	if cfg.XdgDesktopPortal != nil {
		s := cfg.XdgDesktopPortal
		t := map[string]any{}
		if s.FileChooser {
			t["file_chooser"] = true
		}
		if s.Screenshot {
			t["screenshot"] = true
		}
		if s.ScreenCast {
			t["screen_cast"] = true
		}
		if s.Background {
			t["background"] = true
		}
		if s.Settings {
			t["settings"] = true
		}
		out["xdg_desktop_portal"] = t
	}

	return out
}

func unknownKey(service, key string) error {
	return bjerrors.New(bjerrors.Configuration, "services.Decode", "unknown key "+key+" in service "+service)
}

func decodeErr(service, key string, err error) error {
	return bjerrors.Wrap(err, bjerrors.Configuration, "services.Decode."+service+"."+key)
}

func rejectKeys(service string, table map[string]any) error {
	for k := range table {
		return unknownKey(service, k)
	}
	return nil
}

func decodeBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, bjerrors.New(bjerrors.Configuration, "services.decodeBool", "expected boolean")
	}
	return b, nil
}

func decodeString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", bjerrors.New(bjerrors.Configuration, "services.decodeString", "expected string")
	}
	return s, nil
}

func decodeInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, bjerrors.New(bjerrors.Configuration, "services.decodeInt", "expected integer")
	}
}

func decodeStringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, bjerrors.New(bjerrors.Configuration, "services.decodeStringSlice", "expected list of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, bjerrors.New(bjerrors.Configuration, "services.decodeStringSlice", "expected list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeStringOrList accepts either a bare string or a list of strings.
func decodeStringOrList(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	return decodeStringSlice(v)
}
