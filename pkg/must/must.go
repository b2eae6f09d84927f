package must

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/pkg/logging"
)

// Close closes c, logging any failure as a warning.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("Unable to close: %s", err.Error())
	}
}

// OSRemove removes the named file, logging any failure as a warning.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil {
		logger.Warnf("Unable to remove '%s': %s", name, err.Error())
	}
}

// CommandHelp prints help for a command, logging any failure as a warning.
func CommandHelp(c *cobra.Command, logger *logging.Logger) {
	if err := c.Help(); err != nil {
		logger.Warnf("Unable to help: %s", err.Error())
	}
}

// Succeed logs a warning if err is non-nil.
func Succeed(err error, task string, logger *logging.Logger) {
	if err != nil {
		logger.Warnf("Unable to succeed at %s; %s", task, err.Error())
	}
}
