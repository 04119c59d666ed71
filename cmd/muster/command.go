// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// command is one CLI subcommand.
type command struct {
	// name is the subcommand as typed by the user.
	name string

	// summary is the one-line description in the root help listing.
	summary string

	// usage is the full usage string.
	usage string

	// flags returns a configured flag set. Nil means no flags.
	flags func() *pflag.FlagSet

	// run executes with the positional args remaining after flag
	// parsing.
	run func(args []string) error
}

// execute parses flags and runs the command.
func (c *command) execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.printHelp(os.Stderr)
		return nil
	}
	if c.flags != nil {
		flagSet := c.flags()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			return fmt.Errorf("%s\n\nRun 'muster %s --help' for usage.", err, c.name)
		}
		args = flagSet.Args()
	}
	return c.run(args)
}

func (c *command) printHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s\n", c.usage)
	fmt.Fprintf(w, "\n%s\n", c.summary)
	if c.flags != nil {
		fmt.Fprintf(w, "\nFlags:\n%s", c.flags().FlagUsages())
	}
}

func printRootHelp(w io.Writer, commands []*command) {
	fmt.Fprintln(w, "Usage: muster <command> [flags]")
	fmt.Fprintln(w, "\nCommands:")
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(writer, "  %s\t%s\n", c.name, c.summary)
	}
	writer.Flush()
	fmt.Fprintln(w, "\nRun 'muster <command> --help' for command usage.")
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

func suggestCommand(name string, commands []*command) string {
	for _, c := range commands {
		if strings.HasPrefix(c.name, name) {
			return c.name
		}
	}
	return ""
}
