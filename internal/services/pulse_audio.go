// pulse_audio.go - PulseAudio service.
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

// PulseAudio socket/cookie binding. PULSE_SERVER and PULSE_COOKIE are
// honored first, falling back to the XDG runtime socket and the
// xdgbasedir-resolved cookie file.
package services

import (
	"os"
	"path/filepath"
	"strings"

	xdg "github.com/cep21/xdgbasedir"

	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
)

var pulseAudioDescriptor = Descriptor{
	Name:        "pulse_audio",
	PrettyName:  "PulseAudio",
	Description: "Access to the host PulseAudio socket and cookie",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.PulseAudio },
	Iter:        pulseAudioIter,
}

func pulseAudioIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()

	const unixPrefix = "unix:"
	sockPath := env.GetOrDefault("PULSE_SERVER", "")
	switch {
	case sockPath == "":
		sockPath = filepath.Join(env.XDGRuntimeDir, "pulse", "native")
	case strings.HasPrefix(sockPath, unixPrefix):
		sockPath = strings.TrimPrefix(sockPath, unixPrefix)
	default:
		return b.Build()
	}

	sandboxSock := "/run/user/1000/pulse/native"
	if env.XDGRuntimeDir != "" {
		sandboxSock = filepath.Join(env.XDGRuntimeDir, "pulse", "native")
	}
	b.Add(directive.Bind{Source: sockPath, Dest: sandboxSock})
	b.Add(directive.EnvironVar{Name: "PULSE_SERVER", Value: strPtr(unixPrefix + sandboxSock)})

	cookiePath := env.GetOrDefault("PULSE_COOKIE", "")
	if cookiePath == "" {
		if p, err := xdg.GetConfigFileLocation("pulse/cookie"); err == nil {
			cookiePath = p
		}
	}
	if cookiePath != "" {
		if content, err := os.ReadFile(cookiePath); err == nil {
			sandboxCookie := filepath.Join(filepath.Dir(sandboxSock), "cookie")
			b.Add(directive.FileTransfer{Content: content, Dest: sandboxCookie})
			b.Add(directive.EnvironVar{Name: "PULSE_COOKIE", Value: strPtr(sandboxCookie)})
		}
	}

	return b.Build()
}
