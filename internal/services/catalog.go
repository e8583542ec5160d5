// catalog.go - Service catalog and container.
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

// Package services implements the catalog of sandbox capability toggles
// and the container that validates and instantiates a selected subset of
// them. The catalog is a fixed-order slice of descriptors rather than a
// class hierarchy.
package services

import (
	"context"

	"github.com/igo95862/bubblejail-sub000/internal/bjerrors"
	"github.com/igo95862/bubblejail-sub000/internal/bjlog"
	"github.com/igo95862/bubblejail-sub000/internal/directive"
	"github.com/igo95862/bubblejail-sub000/internal/environment"
)

// Flags mirrors the catalog's optional per-service flags.
type Flags int

const (
	FlagNone Flags = 0
	FlagDeprecated Flags = 1 << (iota - 1)
	FlagExperimental
	FlagNoGUI
)

// PostInitFunc runs after the sandboxed PID is known. It receives a
// context bounded by the runner's per-hook timeout.
type PostInitFunc func(ctx context.Context, sandboxedPID int, cfg *ServicesConfig, log bjlog.Logger) error

// PostShutdownFunc runs after the mount helper has been reaped.
type PostShutdownFunc func(ctx context.Context, cfg *ServicesConfig, log bjlog.Logger) error

// IterFunc produces a service's directive sequence for one launch.
type IterFunc func(cfg *ServicesConfig, env *environment.Snapshot) *directive.Iterator

// EnabledFunc reports whether a service is selected in cfg.
type EnabledFunc func(cfg *ServicesConfig) bool

// Descriptor is one catalog entry.
type Descriptor struct {
	Name        string
	PrettyName  string
	Description string
	Conflicts   []string
	Flags       Flags

	Enabled          EnabledFunc
	Iter             IterFunc
	PostInitHook     PostInitFunc
	PostShutdownHook PostShutdownFunc
}

// Catalog is the fixed ordered list of selectable services. The defaults
// service is intentionally absent: it is not user-selectable and is always
// iterated first by Container.
var Catalog = []Descriptor{
	commonDescriptor,
	x11Descriptor,
	waylandDescriptor,
	networkDescriptor,
	pulseAudioDescriptor,
	homeShareDescriptor,
	directRenderingDescriptor,
	systrayDescriptor,
	joystickDescriptor,
	rootShareDescriptor,
	openJDKDescriptor,
	notifyDescriptor,
	gnomeToolkitDescriptor,
	pipewireDescriptor,
	v4lDescriptor,
	ibusDescriptor,
	fcitxDescriptor,
	slirp4netnsDescriptor,
	namespacesLimitsDescriptor,
	debugDescriptor,
	gamemodeDescriptor,
	pastaNetworkDescriptor,
	mprisDescriptor,
	xdgDesktopPortalDescriptor,
}

func byName(name string) (Descriptor, bool) {
	for _, d := range Catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Container validates and iterates a concrete service selection.
type Container struct {
	Config       *ServicesConfig
	enabledNames []string // catalog order
}

// NewContainer structures cfg into a Container, in catalog order,
// enforcing pairwise conflicts.
func NewContainer(cfg *ServicesConfig) (*Container, error) {
	c := &Container{Config: cfg}
	declared := make(map[string]struct{})

	for _, d := range Catalog {
		if !d.Enabled(cfg) {
			continue
		}
		for _, conflict := range d.Conflicts {
			if _, ok := declared[conflict]; ok {
				return nil, bjerrors.New(bjerrors.Configuration, "services.NewContainer",
					"service conflict between "+d.Name+" and "+conflict)
			}
		}
		declared[d.Name] = struct{}{}
		c.enabledNames = append(c.enabledNames, d.Name)
	}
	return c, nil
}

// IterServices returns the defaults service (if includeDefault) followed by
// every enabled service, in catalog order.
func (c *Container) IterServices(includeDefault bool) []Descriptor {
	var out []Descriptor
	if includeDefault {
		out = append(out, defaultsDescriptor)
	}
	for _, name := range c.enabledNames {
		d, _ := byName(name)
		out = append(out, d)
	}
	return out
}

// PostInitHooks returns the enabled services with a PostInitHook, in
// catalog (enablement) order.
func (c *Container) PostInitHooks() []Descriptor {
	var out []Descriptor
	for _, d := range c.IterServices(false) {
		if d.PostInitHook != nil {
			out = append(out, d)
		}
	}
	return out
}

// PostShutdownHooks returns the enabled services with a PostShutdownHook,
// in reverse enablement order for LIFO cleanup.
func (c *Container) PostShutdownHooks() []Descriptor {
	forward := c.PostInitHooksWithShutdown()
	out := make([]Descriptor, len(forward))
	for i, d := range forward {
		out[len(forward)-1-i] = d
	}
	return out
}

// PostInitHooksWithShutdown returns enabled services carrying a
// PostShutdownHook, in enablement order (helper for PostShutdownHooks).
func (c *Container) PostInitHooksWithShutdown() []Descriptor {
	var out []Descriptor
	for _, d := range c.IterServices(false) {
		if d.PostShutdownHook != nil {
			out = append(out, d)
		}
	}
	return out
}

// EnabledNames returns the enabled service names in catalog order.
func (c *Container) EnabledNames() []string {
	return append([]string{}, c.enabledNames...)
}
