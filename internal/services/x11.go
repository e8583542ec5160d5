// x11.go - X11 service.
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
	"strconv"
	"strings"

	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
)

var x11Descriptor = Descriptor{
	Name:        "x11",
	PrettyName:  "X11 windowing system",
	Description: "Access to the host X11 display",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.X11 },
	Iter:        x11Iter,
}

// x11SocketPath parses a DISPLAY string of the form
// "[protocol/]hostname:N[.S]" and returns the abstract-namespace-free unix
// socket path bwrap should bind, or "" if display does not name a local
// unix-domain display.
func x11SocketPath(display string) string {
	rest := display
	if i := strings.Index(rest, "/"); i >= 0 {
		protocol := rest[:i]
		rest = rest[i+1:]
		if protocol != "unix" && protocol != "" {
			return ""
		}
	}

	colon := strings.LastIndex(rest, ":")
	if colon < 0 {
		return ""
	}
	hostname := rest[:colon]
	if hostname != "" {
		return ""
	}

	numPart := rest[colon+1:]
	if dot := strings.Index(numPart, "."); dot >= 0 {
		numPart = numPart[:dot]
	}
	if _, err := strconv.Atoi(numPart); err != nil {
		return ""
	}
	return "/tmp/.X11-unix/X" + numPart
}

func x11Iter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()

	display := env.GetOrDefault("DISPLAY", "")
	if sock := x11SocketPath(display); sock != "" {
		b.Add(directive.ReadOnlyBind{Source: sock})
	}
	if xauth, ok := env.Get("XAUTHORITY"); ok && xauth != "" {
		b.Add(directive.ReadOnlyBind{Source: xauth, Dest: "/tmp/.Xauthority"})
		b.Add(directive.EnvironVar{Name: "XAUTHORITY", Value: strPtr("/tmp/.Xauthority")})
	}
	b.Add(directive.EnvironVar{Name: "DISPLAY"})
	return b.Build()
}
