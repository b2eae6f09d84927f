package cmd

import (
	"os"

	isatty "github.com/mattn/go-isatty"
)

// StandardInputIsTerminal returns whether or not standard input is attached to
// a terminal (including Cygwin/MSYS2 pseudo-terminals on Windows).
func StandardInputIsTerminal() bool {
	descriptor := os.Stdin.Fd()
	return isatty.IsTerminal(descriptor) || isatty.IsCygwinTerminal(descriptor)
}

// StandardOutputIsTerminal returns whether or not standard output is attached
// to a terminal.
func StandardOutputIsTerminal() bool {
	descriptor := os.Stdout.Fd()
	return isatty.IsTerminal(descriptor) || isatty.IsCygwinTerminal(descriptor)
}
