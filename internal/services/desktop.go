// desktop.go - Desktop integration services.
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
	"path/filepath"

	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
)

var waylandDescriptor = Descriptor{
	Name:        "wayland",
	PrettyName:  "Wayland windowing system",
	Description: "Access to the host Wayland compositor",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Wayland },
	Iter:        waylandIter,
}

func waylandIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()
	display := env.GetOrDefault("WAYLAND_DISPLAY", "wayland-0")
	sock := filepath.Join(env.XDGRuntimeDir, display)
	b.Add(directive.Bind{Source: sock})
	b.Add(directive.EnvironVar{Name: "WAYLAND_DISPLAY", Value: strPtr(display)})
	return b.Build()
}

var systrayDescriptor = Descriptor{
	Name:        "systray",
	PrettyName:  "System tray icons",
	Description: "Allows showing a status notifier icon in the desktop tray",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Systray },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.DbusSessionTalkTo{Name: "org.kde.StatusNotifierWatcher"})
		b.Add(directive.DbusSessionTalkTo{Name: "org.freedesktop.StatusNotifierWatcher"})
		return b.Build()
	},
}

var joystickDescriptor = Descriptor{
	Name:        "joystick",
	PrettyName:  "Joysticks and gamepads",
	Description: "Access to /dev/input and the udev control socket",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Joystick },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.DevBind{Source: "/dev/input"})
		b.Add(directive.BindTry{Source: "/run/udev/control"})
		return b.Build()
	},
}

var openJDKDescriptor = Descriptor{
	Name:        "openjdk",
	PrettyName:  "OpenJDK AWT/Swing support",
	Description: "Read-only access to the JDK install roots",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.OpenJDK },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		for _, p := range []string{"/etc/java", "/etc/java-openjdk"} {
			b.Add(directive.ReadOnlyBindTry{Source: p})
		}
		return b.Build()
	},
}

var notifyDescriptor = Descriptor{
	Name:        "notify",
	PrettyName:  "Desktop notifications",
	Description: "Allows sending desktop notifications",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Notify },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.DbusSessionTalkTo{Name: "org.freedesktop.Notifications"})
		return b.Build()
	},
}

var gnomeToolkitDescriptor = Descriptor{
	Name:        "gnome_toolkit",
	PrettyName:  "GNOME toolkit integration",
	Description: "Portal-backed file choosers and optional XDG user directories",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.GnomeToolkit != nil },
	Iter:        gnomeToolkitIter,
}

func gnomeToolkitIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()
	s := cfg.GnomeToolkit
	if s == nil {
		return b.Build()
	}
	b.Add(directive.EnvironVar{Name: "GTK_USE_PORTAL", Value: strPtr("1")})
	if s.XdgDirectories {
		for _, dir := range []string{"Desktop", "Documents", "Download", "Music", "Pictures", "Videos"} {
			b.Add(directive.ReadOnlyBindTry{Source: filepath.Join(env.GetOrDefault("HOME", ""), dir)})
		}
	}
	return b.Build()
}

var pipewireDescriptor = Descriptor{
	Name:        "pipewire",
	PrettyName:  "PipeWire",
	Description: "Access to the host PipeWire socket",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Pipewire },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.Bind{Source: filepath.Join(env.XDGRuntimeDir, "pipewire-0")})
		return b.Build()
	},
}

var v4lDescriptor = Descriptor{
	Name:        "v4l",
	PrettyName:  "Video4Linux devices",
	Description: "Access to /dev/video* devices",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.V4L },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		matches, _ := filepath.Glob("/dev/video*")
		for _, m := range matches {
			b.Add(directive.DevBind{Source: m})
		}
		return b.Build()
	},
}

var ibusDescriptor = Descriptor{
	Name:        "ibus",
	PrettyName:  "IBus input method",
	Description: "Access to the ibus socket directory",
	Conflicts:   []string{"fcitx"},
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.IBus },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.BindTry{Source: filepath.Join(env.XDGConfigHome, "ibus")})
		b.Add(directive.EnvironVar{Name: "GTK_IM_MODULE", Value: strPtr("ibus")})
		b.Add(directive.EnvironVar{Name: "QT_IM_MODULE", Value: strPtr("ibus")})
		return b.Build()
	},
}

var fcitxDescriptor = Descriptor{
	Name:        "fcitx",
	PrettyName:  "Fcitx input method",
	Description: "Access to the fcitx socket directory",
	Conflicts:   []string{"ibus"},
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Fcitx },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.BindTry{Source: filepath.Join(env.XDGConfigHome, "fcitx")})
		b.Add(directive.EnvironVar{Name: "GTK_IM_MODULE", Value: strPtr("fcitx")})
		b.Add(directive.EnvironVar{Name: "QT_IM_MODULE", Value: strPtr("fcitx")})
		return b.Build()
	},
}

var gamemodeDescriptor = Descriptor{
	Name:        "gamemode",
	PrettyName:  "Feral GameMode",
	Description: "Allows requesting GameMode optimizations",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.GameMode },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.DbusSessionTalkTo{Name: "com.feralinteractive.GameMode"})
		return b.Build()
	},
}

var mprisDescriptor = Descriptor{
	Name:        "mpris",
	PrettyName:  "MPRIS media control",
	Description: "Allows owning an org.mpris.MediaPlayer2 name",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Mpris != nil },
	Iter:        mprisIter,
}

func mprisIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()
	s := cfg.Mpris
	if s == nil || s.AppID == "" {
		return b.Build()
	}
	b.Add(directive.DbusSessionOwn{Name: "org.mpris.MediaPlayer2." + s.AppID})
	return b.Build()
}

var xdgDesktopPortalDescriptor = Descriptor{
	Name:        "xdg_desktop_portal",
	PrettyName:  "XDG desktop portal",
	Description: "Curated access to portal interfaces",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.XdgDesktopPortal != nil },
	Iter:        xdgDesktopPortalIter,
}

func xdgDesktopPortalIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()
	s := cfg.XdgDesktopPortal
	if s == nil {
		return b.Build()
	}
	b.Add(directive.DbusSessionSee{Name: "org.freedesktop.portal.Desktop"})
	if s.FileChooser {
		b.Add(directive.DbusSessionCall{Name: "org.freedesktop.portal.Desktop", Interface: "org.freedesktop.portal.FileChooser", Object: "/org/freedesktop/portal/desktop"})
	}
	if s.Screenshot {
		b.Add(directive.DbusSessionCall{Name: "org.freedesktop.portal.Desktop", Interface: "org.freedesktop.portal.Screenshot", Object: "/org/freedesktop/portal/desktop"})
	}
	if s.ScreenCast {
		b.Add(directive.DbusSessionCall{Name: "org.freedesktop.portal.Desktop", Interface: "org.freedesktop.portal.ScreenCast", Object: "/org/freedesktop/portal/desktop"})
	}
	if s.Background {
		b.Add(directive.DbusSessionCall{Name: "org.freedesktop.portal.Desktop", Interface: "org.freedesktop.portal.Background", Object: "/org/freedesktop/portal/desktop"})
	}
	if s.Settings {
		b.Add(directive.DbusSessionCall{Name: "org.freedesktop.portal.Desktop", Interface: "org.freedesktop.portal.Settings", Object: "/org/freedesktop/portal/desktop"})
	}
	return b.Build()
}

var directRenderingDescriptor = Descriptor{
	Name:        "direct_rendering",
	PrettyName:  "GPU direct rendering",
	Description: "Access to /dev/dri",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.DirectRendering != nil },
	Iter:        directRenderingIter,
}

func directRenderingIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()
	b.Add(directive.DevBind{Source: "/dev/dri"})
	if cfg.DirectRendering != nil && cfg.DirectRendering.EnableACO {
		b.Add(directive.EnvironVar{Name: "RADV_PERFTEST", Value: strPtr("aco")})
	}
	return b.Build()
}
