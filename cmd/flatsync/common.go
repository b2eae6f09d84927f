package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/dustin/go-humanize"

	"github.com/spf13/pflag"

	"github.com/flatsync/flatsync/cmd"
	"github.com/flatsync/flatsync/pkg/client"
	"github.com/flatsync/flatsync/pkg/configuration"
	"github.com/flatsync/flatsync/pkg/logging"
	"github.com/flatsync/flatsync/pkg/transfer"
)

// defaultConfigurationDescription describes the default configuration file in
// help output.
const defaultConfigurationDescription = configuration.DefaultPath + " in the working directory, if present"

// loadConfiguration loads the configuration selected by the root flags and
// creates the root logger.
func loadConfiguration() (*configuration.Configuration, *logging.Logger, error) {
	// Load the configuration.
	result, err := configuration.Load(rootConfiguration.configurationFile)
	if err != nil {
		return nil, nil, err
	}

	// Apply any log level override.
	if rootConfiguration.logLevel != "" {
		result.Log.Level = rootConfiguration.logLevel
		if err := result.EnsureValid(); err != nil {
			return nil, nil, errors.Wrap(err, "invalid log level override")
		}
	}

	// Create the logger.
	return result, logging.NewLogger(result.LogLevel(), os.Stderr), nil
}

// clientFlags are the flags shared by client commands.
type clientFlags struct {
	// help indicates whether or not to show help information and exit.
	help bool
	// address overrides the configured server address if non-empty.
	address string
	// root overrides the configured client root if non-empty.
	root string
}

// connect loads the configuration, applies client flag overrides, and connects
// to the server. It returns the client and the effective client root.
func connect(ctx context.Context, flags *clientFlags) (*client.Client, string, *logging.Logger, error) {
	// Load the configuration and apply overrides.
	settings, logger, err := loadConfiguration()
	if err != nil {
		return nil, "", nil, err
	}
	if flags.address != "" {
		settings.Client.Address = flags.address
	}
	if flags.root != "" {
		settings.Client.Root = flags.root
	}

	// Connect.
	logger = logger.Sublogger("client")
	c, err := client.Dial(ctx, settings.Client.Address, logger)
	if err != nil {
		return nil, "", nil, err
	}
	logger.Debugf("Connected to %s", settings.Client.Address)
	return c, settings.Client.Root, logger, nil
}

// formatFileCount formats a file count and total size for display.
func formatFileCount(count int, totalSize uint64) string {
	if count == 1 {
		return fmt.Sprintf("1 file (%s)", humanize.Bytes(totalSize))
	}
	return fmt.Sprintf("%d files (%s)", count, humanize.Bytes(totalSize))
}

// printSummary prints a transfer summary.
func printSummary(verb string, summary transfer.Summary) {
	for _, name := range summary.Files {
		fmt.Println("\t" + name)
	}
	fmt.Printf("%s %s\n", verb, formatFileCount(len(summary.Files), summary.Bytes))
	for _, name := range summary.Discarded {
		cmd.Warning(fmt.Sprintf("discarded %s: content did not match its digest", name))
	}
}

// registerClientFlags registers the flags shared by client commands.
func registerClientFlags(flags *pflag.FlagSet, target *clientFlags) {
	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&target.help, "help", "h", false, "Show help information")

	// Wire up connection flags.
	flags.StringVarP(&target.address, "address", "a", "", "Specify the server address (overrides the configuration)")
	flags.StringVarP(&target.root, "root", "r", "", "Specify the local directory (overrides the configuration)")
}
