package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/cmd"
	"github.com/flatsync/flatsync/pkg/inventory"
	"github.com/flatsync/flatsync/pkg/must"
)

// shortDigestLength is the number of digest characters displayed.
const shortDigestLength = 12

// printDelta prints the records reported by a DIFF exchange.
func printDelta(delta []inventory.FileRecord) {
	for _, record := range delta {
		fmt.Printf("\t%s  %s\n", record.Digest[:shortDigestLength], record.Name)
	}
	if len(delta) == 1 {
		fmt.Println("1 file missing or out of date")
	} else {
		fmt.Printf("%d files missing or out of date\n", len(delta))
	}
}

// diffMain is the entry point for the diff command.
func diffMain(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the server.
	c, root, logger, err := connect(ctx, &diffConfiguration)
	if err != nil {
		return err
	}
	defer must.Close(c, logger)

	// Compute the delta.
	delta, err := c.Diff(ctx, root)
	if err != nil {
		return err
	}
	printDelta(delta)

	// End the session.
	return c.Leave(ctx)
}

// diffCommand is the diff command.
var diffCommand = &cobra.Command{
	Use:   "diff",
	Short: "Show server files that are missing or out of date locally",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(diffMain),
}

// diffConfiguration stores configuration for the diff command.
var diffConfiguration clientFlags

func init() {
	registerClientFlags(diffCommand.Flags(), &diffConfiguration)
}
