package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/cmd"
	"github.com/flatsync/flatsync/pkg/must"
)

// listMain is the entry point for the list command.
func listMain(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the server.
	c, root, logger, err := connect(ctx, &listConfiguration)
	if err != nil {
		return err
	}
	defer must.Close(c, logger)

	// Retrieve every file.
	statusLinePrinter := cmd.NewStatusLinePrinter()
	statusLinePrinter.Print("Retrieving files...")
	summary, err := c.List(ctx, root)
	statusLinePrinter.Clear()
	if err != nil {
		return err
	}
	printSummary("Received", summary)

	// End the session.
	return c.Leave(ctx)
}

// listCommand is the list command.
var listCommand = &cobra.Command{
	Use:   "list",
	Short: "Retrieve every file on the server",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(listMain),
}

// listConfiguration stores configuration for the list command.
var listConfiguration clientFlags

func init() {
	registerClientFlags(listCommand.Flags(), &listConfiguration)
}
