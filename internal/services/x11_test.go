// x11_test.go - X11 display parsing tests.
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

import "testing"

func TestX11SocketPath(t *testing.T) {
	tests := []struct {
		name    string
		display string
		want    string
	}{
		{name: "bare display", display: ":0", want: "/tmp/.X11-unix/X0"},
		{name: "explicit unix protocol", display: "unix/:0", want: "/tmp/.X11-unix/X0"},
		{name: "screen suffix ignored", display: ":0.1", want: "/tmp/.X11-unix/X0"},
		{name: "unix protocol with screen 1", display: "unix/:1", want: "/tmp/.X11-unix/X1"},
		{name: "tcp hostname rejected", display: "tcp/localhost:1", want: ""},
		{name: "non-unix protocol with hostname rejected", display: "unix/localhost:1", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x11SocketPath(tt.display)
			if got != tt.want {
				t.Errorf("x11SocketPath(%q) = %q, want %q", tt.display, got, tt.want)
			}
		})
	}
}
