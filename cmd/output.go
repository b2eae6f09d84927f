package cmd

import (
	"fmt"

	"github.com/fatih/color"
)

// StatusLinePrinter provides printing facilities for dynamically updating
// status lines in the console. If the output isn't a terminal, it prints
// nothing, since carriage return wipes would only garble redirected output.
type StatusLinePrinter struct {
	// Disabled suppresses all output.
	Disabled bool
	// nonEmpty indicates whether or not the printer has printed any non-empty
	// content to the status line.
	nonEmpty bool
}

// NewStatusLinePrinter creates a status line printer that is enabled only if
// standard output is a terminal.
func NewStatusLinePrinter() *StatusLinePrinter {
	return &StatusLinePrinter{Disabled: !StandardOutputIsTerminal()}
}

// Print prints a message to the status line, overwriting any existing content.
// Messages are truncated and padded to a platform-dependent width.
func (p *StatusLinePrinter) Print(message string) {
	if p.Disabled {
		return
	}
	fmt.Fprintf(color.Output, statusLineFormat, message)
	p.nonEmpty = true
}

// Clear clears any content on the status line and moves the cursor back to the
// beginning of the line.
func (p *StatusLinePrinter) Clear() {
	if p.Disabled || !p.nonEmpty {
		return
	}
	fmt.Fprintf(color.Output, statusLineClearFormat, "")
	p.nonEmpty = false
}
