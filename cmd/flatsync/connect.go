package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/cmd"
	"github.com/flatsync/flatsync/pkg/client"
	"github.com/flatsync/flatsync/pkg/must"
	"github.com/flatsync/flatsync/pkg/protocol"
)

// connectPrompt is the interactive prompt.
const connectPrompt = "flatsync> "

// connectHelp describes the interactive commands.
const connectHelp = `Commands:
    LIST                        Retrieve every file on the server
    DIFF                        Show files missing or out of date locally
    PULL <name>...              Retrieve the named files
    MATCH <pattern>...          Retrieve the files matching doublestar patterns
    SYNC                        Retrieve files missing or out of date locally
    LEAVE                       End the session
    HELP                        Show this help
`

// errSessionEnded indicates that the interactive session ended normally.
var errSessionEnded = errors.New("session ended")

// runInteractiveCommand executes a single interactive command line.
func runInteractiveCommand(ctx context.Context, c *client.Client, root string, fields []string) error {
	// Handle commands that aren't protocol requests.
	name := strings.ToUpper(fields[0])
	switch name {
	case "HELP":
		fmt.Print(connectHelp)
		return nil
	case "SYNC":
		summary, err := c.Sync(ctx, root)
		if err != nil {
			return err
		}
		printSummary("Updated", summary)
		return nil
	case "MATCH":
		if len(fields) == 1 {
			return errors.New("MATCH requires at least one pattern")
		}
		summary, err := c.PullMatching(ctx, fields[1:], root)
		if err != nil {
			return err
		}
		printSummary("Received", summary)
		return nil
	}

	// Dispatch protocol requests.
	kind, ok := protocol.ParseKind(name)
	if !ok {
		return errors.Errorf("unknown command %q (try HELP)", fields[0])
	} else if kind != protocol.KindPull && len(fields) > 1 {
		return errors.Errorf("%s does not accept arguments", kind)
	}
	switch kind {
	case protocol.KindList:
		summary, err := c.List(ctx, root)
		if err != nil {
			return err
		}
		printSummary("Received", summary)
	case protocol.KindDiff:
		delta, err := c.Diff(ctx, root)
		if err != nil {
			return err
		}
		printDelta(delta)
	case protocol.KindPull:
		if len(fields) == 1 {
			return errors.New("PULL requires at least one file name")
		}
		summary, err := c.Pull(ctx, fields[1:], root)
		if err != nil {
			return err
		}
		printSummary("Received", summary)
	case protocol.KindLeave:
		if err := c.Leave(ctx); err != nil {
			return err
		}
		return errSessionEnded
	}
	return nil
}

// interact runs the interactive command loop until the session ends, input is
// exhausted, or the connection fails. Failures of individual commands are
// printed and the loop continues.
func interact(ctx context.Context, c *client.Client, root string, input io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(input)
	for {
		// Read the next command line.
		if prompt {
			fmt.Print(connectPrompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return errors.Wrap(err, "unable to read command")
			}
			if prompt {
				fmt.Println()
			}
			return c.Leave(ctx)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		// Run it.
		if err := runInteractiveCommand(ctx, c, root, fields); err == errSessionEnded {
			return nil
		} else if err != nil {
			if !c.Usable() {
				return errors.Wrap(err, "connection failed")
			}
			cmd.Error(err)
		}
	}
}

// connectMain is the entry point for the connect command.
func connectMain(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the server.
	c, root, logger, err := connect(ctx, &connectConfiguration)
	if err != nil {
		return err
	}
	defer must.Close(c, logger)

	// Run the interactive loop, prompting only if a human is typing.
	prompt := cmd.StandardInputIsTerminal()
	if prompt {
		fmt.Print(connectHelp)
	}
	return interact(ctx, c, root, os.Stdin, prompt)
}

// connectCommand is the connect command.
var connectCommand = &cobra.Command{
	Use:   "connect",
	Short: "Start an interactive session with a server",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(connectMain),
}

// connectConfiguration stores configuration for the connect command.
var connectConfiguration clientFlags

func init() {
	registerClientFlags(connectCommand.Flags(), &connectConfiguration)
}
