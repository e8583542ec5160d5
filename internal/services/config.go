// config.go - Service settings records.
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

// ServicesConfig holds one optional settings field per catalog service. A
// nil field means that service is disabled; services with no configurable
// fields instead use a bool presence flag.
type ServicesConfig struct {
	Common *CommonSettings

	X11         bool
	Wayland     bool
	Network     bool
	PulseAudio  bool
	Systray     bool
	Joystick    bool
	OpenJDK     bool
	Notify      bool
	Pipewire    bool
	V4L         bool
	IBus        bool
	Fcitx       bool
	GameMode    bool

	HomeShare         *HomeShareSettings
	DirectRendering   *DirectRenderingSettings
	RootShare         *RootShareSettings
	GnomeToolkit      *GnomeToolkitSettings
	Slirp4netns       *Slirp4netnsSettings
	NamespacesLimits  *NamespacesLimitsSettings
	Debug             *DebugSettings
	PastaNetwork      *PastaNetworkSettings
	Mpris             *MprisSettings
	XdgDesktopPortal  *XdgDesktopPortalSettings
}

// CommonSettings is the always-available service's configuration.
type CommonSettings struct {
	ExecutableArgs []string
	ShareLocalTime bool
}

// HomeShareSettings configures the home_share service.
type HomeShareSettings struct {
	Paths []string
}

// DirectRenderingSettings configures the direct_rendering service.
type DirectRenderingSettings struct {
	EnableACO bool
}

// RootShareSettings configures the root_share service. Paths are shared
// read-write, ReadOnlyPaths read-only; both use the host root's view.
type RootShareSettings struct {
	Paths         []string
	ReadOnlyPaths []string
}

// GnomeToolkitSettings configures the gnome_toolkit service.
type GnomeToolkitSettings struct {
	XdgDirectories bool
}

// Slirp4netnsSettings configures the slirp4netns service. DNSServers are
// written to the sandbox resolv.conf ahead of the internal DNS server,
// OutboundAddr is the address or device slirp4netns binds outbound
// connections to, and DisableHostLoopback (default true) prohibits
// reaching the host's loopback interface.
type Slirp4netnsSettings struct {
	DNSServers          []string
	OutboundAddr        string
	DisableHostLoopback bool
}

// DefaultSlirp4netnsSettings returns the slirp4netns defaults; host
// loopback access is denied unless explicitly enabled.
func DefaultSlirp4netnsSettings() *Slirp4netnsSettings {
	return &Slirp4netnsSettings{DisableHostLoopback: true}
}

// NamespacesLimitsSettings configures the namespaces_limits service. Each
// field is a namespace-count limit: -1 means unchanged, 0 forbids child
// namespaces of that kind, and the limits apply recursively.
type NamespacesLimitsSettings struct {
	User   int
	Mount  int
	Pid    int
	Uts    int
	Net    int
	Ipc    int
	Cgroup int
}

// DefaultNamespacesLimitsSettings returns bubblejail's conservative default
// policy: forbid every namespace kind from being created further.
func DefaultNamespacesLimitsSettings() *NamespacesLimitsSettings {
	return &NamespacesLimitsSettings{User: 0, Mount: 0, Pid: 0, Uts: 0, Net: 0, Ipc: 0, Cgroup: 0}
}

// DebugSettings configures the debug service's raw passthrough args.
type DebugSettings struct {
	BwrapArgs       []string
	DbusSessionArgs []string
	DbusSystemArgs  []string
}

// PastaNetworkSettings configures the pasta_network service. ExtraArgs
// are passed through to the pasta argv (interface binding, port
// forwarding; see the passt man page).
type PastaNetworkSettings struct {
	ExtraArgs []string
}

// MprisSettings configures the mpris service.
type MprisSettings struct {
	AppID string
}

// XdgDesktopPortalSettings configures the xdg_desktop_portal service, one
// boolean per portal interface it is allowed to gate in.
type XdgDesktopPortalSettings struct {
	FileChooser bool
	Screenshot  bool
	ScreenCast  bool
	Background  bool
	Settings    bool
}
