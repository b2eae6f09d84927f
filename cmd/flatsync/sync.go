package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/cmd"
	"github.com/flatsync/flatsync/pkg/must"
)

// syncMain is the entry point for the sync command.
func syncMain(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the server.
	c, root, logger, err := connect(ctx, &syncConfiguration)
	if err != nil {
		return err
	}
	defer must.Close(c, logger)

	// Bring the local directory up to date.
	statusLinePrinter := cmd.NewStatusLinePrinter()
	statusLinePrinter.Print("Synchronizing...")
	summary, err := c.Sync(ctx, root)
	statusLinePrinter.Clear()
	if err != nil {
		return err
	}
	printSummary("Updated", summary)

	// End the session.
	return c.Leave(ctx)
}

// syncCommand is the sync command.
var syncCommand = &cobra.Command{
	Use:   "sync",
	Short: "Retrieve server files that are missing or out of date locally",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(syncMain),
}

// syncConfiguration stores configuration for the sync command.
var syncConfiguration clientFlags

func init() {
	registerClientFlags(syncCommand.Flags(), &syncConfiguration)
}
