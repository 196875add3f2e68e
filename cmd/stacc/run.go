package main

import (
	"fmt"
	"os"

	"github.com/chazu/stacc/compiler"
)

// runFile parses and runs the program at path. Parse errors are reported
// with their position; nothing runs when the program does not parse.
func (c *cli) runFile(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}

	stmts, err := compiler.Parse(string(src))
	if err != nil {
		fmt.Fprintf(c.stderr, "%s: %s\n", path, compiler.Diagnose(err, string(src)))
		return 1
	}

	in, err := c.newInterpreter()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if err := in.Run(stmts); err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	return 0
}

// cmdRun runs the named file, or the project entry when none is given.
func cmdRun(c *cli, args []string) error {
	path := c.manifest.EntryPath()
	switch len(args) {
	case 0:
		if path == "" {
			return fmt.Errorf("%w: run needs a file or a project entry in stacc.toml", errUsage)
		}
	case 1:
		path = args[0]
	default:
		return fmt.Errorf("%w: run takes at most one file", errUsage)
	}
	if code := c.runFile(path); code != 0 {
		return errSilent
	}
	return nil
}
