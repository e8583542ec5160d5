// fsnet.go - Filesystem sharing and host network services.
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
	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
)

var homeShareDescriptor = Descriptor{
	Name:        "home_share",
	PrettyName:  "Home directory sharing",
	Description: "Read-write bind of additional host paths",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.HomeShare != nil },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		if cfg.HomeShare != nil {
			for _, p := range cfg.HomeShare.Paths {
				b.Add(directive.Bind{Source: p})
			}
		}
		return b.Build()
	},
}

var rootShareDescriptor = Descriptor{
	Name:        "root_share",
	PrettyName:  "Root filesystem sharing",
	Description: "Bind of additional host paths outside the instance home",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.RootShare != nil },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		if cfg.RootShare != nil {
			for _, p := range cfg.RootShare.Paths {
				b.Add(directive.Bind{Source: p})
			}
			for _, p := range cfg.RootShare.ReadOnlyPaths {
				b.Add(directive.ReadOnlyBind{Source: p})
			}
		}
		return b.Build()
	},
}

var networkDescriptor = Descriptor{
	Name:        "network",
	PrettyName:  "Host network",
	Description: "Shares the host network namespace",
	Conflicts:   []string{"slirp4netns", "pasta_network"},
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Network },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		b.Add(directive.ShareNetwork{})
		return b.Build()
	},
}

var debugDescriptor = Descriptor{
	Name:        "debug",
	PrettyName:  "Debug passthrough",
	Description: "Raw mount-helper and D-Bus proxy argument passthrough",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Debug != nil },
	Iter: func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
		b := directive.NewBuilder()
		s := cfg.Debug
		if s == nil {
			return b.Build()
		}
		if len(s.BwrapArgs) > 0 {
			b.Add(directive.RawArgs{Args: s.BwrapArgs})
		}
		for _, arg := range s.DbusSessionArgs {
			b.Add(directive.DbusSessionRawArg{Arg: arg})
		}
		for _, arg := range s.DbusSystemArgs {
			b.Add(directive.DbusSystemRawArg{Arg: arg})
		}
		return b.Build()
	},
}
