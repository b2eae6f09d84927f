package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/cmd"
	"github.com/flatsync/flatsync/pkg/must"
	"github.com/flatsync/flatsync/pkg/transfer"
)

// pullMain is the entry point for the pull command.
func pullMain(_ *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		return errors.New("at least one file name or pattern is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the server.
	c, root, logger, err := connect(ctx, &pullConfiguration.clientFlags)
	if err != nil {
		return err
	}
	defer must.Close(c, logger)

	// Retrieve the selected files.
	statusLinePrinter := cmd.NewStatusLinePrinter()
	statusLinePrinter.Print("Retrieving files...")
	var summary transfer.Summary
	if pullConfiguration.patterns {
		summary, err = c.PullMatching(ctx, arguments, root)
	} else {
		summary, err = c.Pull(ctx, arguments, root)
	}
	statusLinePrinter.Clear()
	if err != nil {
		return err
	}
	printSummary("Received", summary)

	// End the session.
	return c.Leave(ctx)
}

// pullCommand is the pull command.
var pullCommand = &cobra.Command{
	Use:   "pull <name>...",
	Short: "Retrieve the named files from the server",
	Run:   cmd.Mainify(pullMain),
}

// pullConfiguration stores configuration for the pull command.
var pullConfiguration struct {
	clientFlags
	// patterns indicates that arguments are doublestar patterns rather than
	// file names.
	patterns bool
}

func init() {
	flags := pullCommand.Flags()
	registerClientFlags(flags, &pullConfiguration.clientFlags)
	flags.BoolVarP(&pullConfiguration.patterns, "patterns", "p", false, "Treat arguments as doublestar patterns instead of file names")
}
