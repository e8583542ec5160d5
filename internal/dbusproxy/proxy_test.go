// proxy_test.go - D-Bus proxy argument tests.
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

package dbusproxy

import (
	"reflect"
	"testing"
)

func TestArgsOrdersSessionThenSystemWithFilter(t *testing.T) {
	p := &Proxy{
		SessionBusAddress: "unix:path=/run/user/1000/bus",
		SessionSocketPath: "/run/user/1000/bubblejail/myapp/dbus_session_proxy",
		SessionRules:      []string{"--talk=org.freedesktop.Notifications"},
		SystemSocketPath:  "/run/user/1000/bubblejail/myapp/dbus_system_proxy",
		SystemRules:       []string{"--see=org.freedesktop.UPower"},
	}
	got := p.args(3)
	want := []string{
		"--fd=3",
		"unix:path=/run/user/1000/bus",
		"/run/user/1000/bubblejail/myapp/dbus_session_proxy",
		"--talk=org.freedesktop.Notifications",
		"--filter",
		"unix:path=/run/dbus/system_bus_socket",
		"/run/user/1000/bubblejail/myapp/dbus_system_proxy",
		"--see=org.freedesktop.UPower",
		"--filter",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestArgsAppendsLogFlagWhenEnabled(t *testing.T) {
	p := &Proxy{LogMessages: true}
	got := p.args(3)
	logCount := 0
	for _, a := range got {
		if a == "--log" {
			logCount++
		}
	}
	if logCount != 2 {
		t.Fatalf("expected one --log per bus, got %d occurrences in %v", logCount, got)
	}
}

func TestAddRuleAccumulates(t *testing.T) {
	p := &Proxy{}
	p.AddSessionRule("--own=org.example")
	p.AddSessionRule("--talk=org.example.Other")
	p.AddSystemRule("--see=org.freedesktop.UPower")
	if !reflect.DeepEqual(p.SessionRules, []string{"--own=org.example", "--talk=org.example.Other"}) {
		t.Fatalf("unexpected session rules: %v", p.SessionRules)
	}
	if !reflect.DeepEqual(p.SystemRules, []string{"--see=org.freedesktop.UPower"}) {
		t.Fatalf("unexpected system rules: %v", p.SystemRules)
	}
}
