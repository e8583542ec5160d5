// common.go - Common service.
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

// commonDescriptor is the always-available service carrying launch argv
// extras and the local-time bind.
var commonDescriptor = Descriptor{
	Name:        "common",
	PrettyName:  "Common settings",
	Description: "Extra launch arguments and local time sharing",
	Enabled:     func(cfg *ServicesConfig) bool { return cfg.Common != nil },
	Iter:        commonIter,
}

func commonIter(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator {
	b := directive.NewBuilder()
	s := cfg.Common
	if s == nil {
		return b.Build()
	}
	if len(s.ExecutableArgs) > 0 {
		b.Add(directive.LaunchArguments{Argv: s.ExecutableArgs, Priority: 10})
	}
	if s.ShareLocalTime {
		b.Add(directive.ReadOnlyBind{Source: "/etc/localtime"})
	}
	return b.Build()
}
