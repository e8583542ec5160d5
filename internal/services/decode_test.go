// decode_test.go - Service configuration round-trip tests.
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
	"reflect"
	"testing"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]map[string]any
	}{
		{"empty", map[string]map[string]any{}},
		{"flags only", map[string]map[string]any{
			"x11":     {},
			"wayland": {},
			"network": {},
		}},
		{"common with args", map[string]map[string]any{
			"common": {"executable_args": []any{"--foo", "--bar"}, "share_local_time": true},
		}},
		{"home share paths", map[string]map[string]any{
			"home_share": {"home_paths": []any{"Documents", "Downloads"}},
		}},
		{"namespaces limits partial", map[string]map[string]any{
			"namespaces_limits": {"user": 2, "net": 0},
		}},
		{"xdg desktop portal", map[string]map[string]any{
			"xdg_desktop_portal": {"file_chooser": true, "screenshot": true},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Decode(tc.raw)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			encoded := Encode(cfg)

			cfg2, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(Encode(cfg)): %v", err)
			}
			encoded2 := Encode(cfg2)

			if !reflect.DeepEqual(encoded, encoded2) {
				t.Fatalf("round trip not stable: %#v != %#v", encoded, encoded2)
			}
		})
	}
}

func TestDecodeOmitsDefaults(t *testing.T) {
	raw := map[string]map[string]any{
		"common": {"share_local_time": false},
	}
	cfg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	encoded := Encode(cfg)
	common, ok := encoded["common"]
	if !ok {
		t.Fatalf("expected common table present")
	}
	if _, ok := common["share_local_time"]; ok {
		t.Fatalf("expected default-valued share_local_time to be omitted, got %#v", common)
	}
}

func TestDecodeRejectsUnknownService(t *testing.T) {
	_, err := Decode(map[string]map[string]any{"totally_bogus": {}})
	if err == nil {
		t.Fatalf("expected error for unknown service")
	}
}

func TestDecodeRejectsUnknownKey(t *testing.T) {
	_, err := Decode(map[string]map[string]any{
		"home_share": {"bogus_key": []any{"x"}},
	})
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestDecodeEnforcesConflicts(t *testing.T) {
	_, err := Decode(map[string]map[string]any{
		"network":     {},
		"slirp4netns": {"disable_host_loopback": true},
	})
	if err == nil {
		t.Fatalf("expected conflict error between network and slirp4netns")
	}
}

func TestDecodeAppliesNamespacesLimitsDefaults(t *testing.T) {
	cfg, err := Decode(map[string]map[string]any{
		"namespaces_limits": {"mount": 5},
	})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.NamespacesLimits.Mount != 5 {
		t.Fatalf("expected mount=5, got %d", cfg.NamespacesLimits.Mount)
	}
	if cfg.NamespacesLimits.User != 0 {
		t.Fatalf("expected default user limit 0, got %d", cfg.NamespacesLimits.User)
	}
}
