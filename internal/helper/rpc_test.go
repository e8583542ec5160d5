// rpc_test.go - Helper RPC dispatch tests.
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

package helper

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/igo95862/bubblejail-sub000/internal/bjlog"
)

func newTestHelper() *Helper {
	return New(nil, nil, bjlog.NewAdapter(bjlog.Default()))
}

func TestHandleRequestPing(t *testing.T) {
	h := newTestHelper()
	id := "t"
	req := Request{ID: &id, Method: "ping"}
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, ok := h.handleRequest(line)
	if !ok {
		t.Fatalf("expected a response for ping")
	}
	var decoded Response
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if decoded.ID == nil || *decoded.ID != "t" {
		t.Fatalf("expected id echoed back as %q, got %v", "t", decoded.ID)
	}
	result, ok := decoded.Result.([]any)
	if !ok || len(result) != 1 || result[0] != "pong" {
		t.Fatalf("expected result == [\"pong\"], got %#v", decoded.Result)
	}
	if !strings.HasSuffix(string(resp), "\n") {
		t.Fatalf("expected response to be newline-terminated")
	}
}

func TestHandleRequestRunWaitsAndCapturesOutput(t *testing.T) {
	h := newTestHelper()
	id := "r"
	params, _ := json.Marshal(RunParams{ArgsToRun: []string{"echo", "hi"}, WaitResponse: true})
	req := Request{ID: &id, Method: "run", Params: params}
	line, _ := json.Marshal(req)

	resp, ok := h.handleRequest(line)
	if !ok {
		t.Fatalf("expected a response for a waiting run request")
	}
	var decoded Response
	if err := json.Unmarshal(resp, &decoded); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	result, ok := decoded.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected result to be an object, got %#v", decoded.Result)
	}
	if result["return"] != "hi\n" {
		t.Fatalf("expected result.return == %q, got %#v", "hi\n", result["return"])
	}
}

func TestHandleRequestRunDetachedSendsNoResponse(t *testing.T) {
	h := newTestHelper()
	params, _ := json.Marshal(RunParams{ArgsToRun: []string{"true"}, WaitResponse: false})
	req := Request{Method: "run", Params: params}
	line, _ := json.Marshal(req)

	if _, ok := h.handleRequest(line); ok {
		t.Fatalf("expected no response for a non-waiting run request")
	}
}

func TestHandleRequestUnknownMethodIsIgnored(t *testing.T) {
	h := newTestHelper()
	req := Request{Method: "totally_bogus"}
	line, _ := json.Marshal(req)
	if _, ok := h.handleRequest(line); ok {
		t.Fatalf("expected unknown methods to be logged and ignored, not responded to")
	}
}

func TestHandleRequestMalformedJSONIsIgnored(t *testing.T) {
	h := newTestHelper()
	if _, ok := h.handleRequest([]byte("not json")); ok {
		t.Fatalf("expected malformed JSON to be ignored, not responded to")
	}
}
