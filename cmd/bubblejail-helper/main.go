// main.go - In-sandbox helper entry point.
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

// bubblejail-helper is the in-sandbox PID-1 supervisor, invoked by the
// mount helper with --helper-socket, --ready-fd, --shell, and a startup
// argv. Thin main that parses flags and hands off to internal/helper.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/igo95862/bubblejail-sub000/internal/bjlog"
	"github.com/igo95862/bubblejail-sub000/internal/helper"
)

func main() {
	helperSocketFd := flag.Int("helper-socket", -1, "inherited unix socket fd bound to the helper path")
	readyFd := flag.Int("ready-fd", -1, "pipe read-end on which the outer runner writes the ready token")
	shell := flag.Bool("shell", false, "run /bin/sh instead of the startup argv")
	flag.Parse()

	log := bjlog.NewAdapter(bjlog.Default())

	if *helperSocketFd < 0 {
		fmt.Fprintln(os.Stderr, "bubblejail-helper: --helper-socket is required")
		os.Exit(1)
	}

	if *readyFd >= 0 {
		readyFile := os.NewFile(uintptr(*readyFd), "ready-fd")
		buf := make([]byte, len("bubblejail-ready"))
		n, err := readyFile.Read(buf)
		readyFile.Close()
		if err != nil || string(buf[:n]) != "bubblejail-ready" {
			fmt.Fprintln(os.Stderr, "bubblejail-helper: could not read 'bubblejail-ready' from ready fd")
			os.Exit(1)
		}
	}

	startupArgs := flag.Args()
	if *shell {
		startupArgs = []string{"/bin/sh"}
	}

	socketFile := os.NewFile(uintptr(*helperSocketFd), "helper-socket")
	conn, err := net.FileListener(socketFile)
	if err != nil {
		log.Errorf("bubblejail-helper: failed to wrap helper socket: %v", err)
		os.Exit(1)
	}
	listener, ok := conn.(*net.UnixListener)
	if !ok {
		log.Errorf("bubblejail-helper: helper socket fd is not a unix listener")
		os.Exit(1)
	}

	h := helper.New(listener, startupArgs, log)
	if err := h.Run(); err != nil {
		log.Errorf("bubblejail-helper: fatal error: %v", err)
		os.Exit(1)
	}
}
