// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"
)

const defaultSocketPath = "/var/lib/muster/muster.sock"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "muster: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	socket := defaultSocketPath
	if env := os.Getenv("MUSTER_SOCKET"); env != "" {
		socket = env
	}

	// --socket is accepted before the subcommand so it applies to all
	// of them.
	for len(args) > 0 && strings.HasPrefix(args[0], "--socket") {
		if value, ok := strings.CutPrefix(args[0], "--socket="); ok {
			socket = value
			args = args[1:]
			continue
		}
		if len(args) < 2 {
			return fmt.Errorf("--socket requires a path")
		}
		socket = args[1]
		args = args[2:]
	}

	commands := []*command{
		proposeCommand(&socket),
		rescheduleCommand(&socket),
		editCommand(&socket),
		cancelCommand(&socket),
		listCommand(&socket),
		statusCommand(&socket),
	}

	if len(args) == 0 || isHelpFlag(args[0]) {
		printRootHelp(os.Stderr, commands)
		if len(args) == 0 {
			return fmt.Errorf("command required")
		}
		return nil
	}

	name := args[0]
	for _, c := range commands {
		if c.name == name {
			return c.execute(args[1:])
		}
	}
	if suggestion := suggestCommand(name, commands); suggestion != "" {
		return fmt.Errorf("unknown command %q (did you mean %q?)", name, suggestion)
	}
	return fmt.Errorf("unknown command %q", name)
}
