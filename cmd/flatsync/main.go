package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/pkg/flatsync"
	"github.com/flatsync/flatsync/pkg/must"
)

// rootMain is the entry point for the root command.
func rootMain(command *cobra.Command, _ []string) error {
	// If no commands were given, then print help information and bail. We don't
	// have to worry about warning about arguments being present here (which
	// would be incorrect usage) because arguments can't even reach this point
	// (they will be mistaken for subcommands and a error will be displayed).
	must.CommandHelp(command, nil)

	// Success.
	return nil
}

// rootCommand is the root command.
var rootCommand = &cobra.Command{
	Use:          "flatsync",
	Version:      flatsync.Version,
	Short:        "flatsync synchronizes the files of a flat directory over TCP",
	RunE:         rootMain,
	SilenceUsage: true,
}

// rootConfiguration stores configuration for the root command.
var rootConfiguration struct {
	// help indicates whether or not to show help information and exit.
	help bool
	// configurationFile is the path to the configuration file. If empty, the
	// default configuration file is loaded if present.
	configurationFile string
	// logLevel overrides the configured log level if non-empty.
	logLevel string
}

func init() {
	// Disable Cobra's command sorting behavior. By default, it sorts commands
	// alphabetically in the help output.
	cobra.EnableCommandSorting = false

	// Disable Cobra's use of mousetrap, since the server is commonly launched
	// without a console.
	cobra.MousetrapHelpText = ""

	// Set the template used by the version flag.
	rootCommand.SetVersionTemplate("flatsync version {{ .Version }}\n")

	// Grab a handle for the command line flags.
	flags := rootCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")

	// Wire up flags shared by all commands.
	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.SortFlags = false
	persistentFlags.StringVarP(&rootConfiguration.configurationFile, "config", "c", "", "Specify a configuration file (defaults to "+defaultConfigurationDescription+")")
	persistentFlags.StringVar(&rootConfiguration.logLevel, "log-level", "", "Override the log level (disabled|error|warn|info|debug|trace)")

	// Hide Cobra's completion command.
	rootCommand.CompletionOptions.HiddenDefaultCmd = true

	// Register commands. We do this here (rather than in individual init
	// functions) so that we can control the order.
	rootCommand.AddCommand(
		serveCommand,
		connectCommand,
		listCommand,
		diffCommand,
		pullCommand,
		syncCommand,
		versionCommand,
	)
}

func main() {
	// Execute the root command.
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
