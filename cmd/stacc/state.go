package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/chazu/stacc/vm"
)

// writeState prints the global variables (sorted by name) beside the
// global stack (bottom first):
//
//	| Ident | Value |  | Stack |
//	|-------|-------|  |-------|
//	| x     | 5     |  | 10    |
func writeState(w io.Writer, snap vm.Snapshot) {
	names := snap.Names()
	values := make([]string, len(names))
	identW, valueW, stackW := 5, 5, 5
	for i, name := range names {
		values[i] = snap.Variables[name].String()
		identW = max(identW, runewidth.StringWidth(name))
		valueW = max(valueW, runewidth.StringWidth(values[i]))
	}
	stack := make([]string, len(snap.Stack))
	for i, v := range snap.Stack {
		stack[i] = v.String()
		stackW = max(stackW, runewidth.StringWidth(stack[i]))
	}

	fmt.Fprintf(w, "| %s | %s |  | %s |\n", pad("Ident", identW), pad("Value", valueW), pad("Stack", stackW))
	fmt.Fprintf(w, "|%s|%s|  |%s|\n", strings.Repeat("-", identW+2), strings.Repeat("-", valueW+2), strings.Repeat("-", stackW+2))

	for i := range max(len(names), len(stack)) {
		switch {
		case i < len(names) && i < len(stack):
			fmt.Fprintf(w, "| %s | %s |  | %s |\n", pad(names[i], identW), pad(values[i], valueW), pad(stack[i], stackW))
		case i < len(names):
			fmt.Fprintf(w, "| %s | %s |\n", pad(names[i], identW), pad(values[i], valueW))
		default:
			fmt.Fprintf(w, "%s| %s |\n", strings.Repeat(" ", identW+valueW+9), pad(stack[i], stackW))
		}
	}
}

// pad right-fills s with spaces to display width w.
func pad(s string, w int) string {
	return s + strings.Repeat(" ", max(0, w-runewidth.StringWidth(s)))
}
