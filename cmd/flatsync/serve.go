package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/flatsync/flatsync/cmd"
	"github.com/flatsync/flatsync/pkg/configuration"
	"github.com/flatsync/flatsync/pkg/must"
	"github.com/flatsync/flatsync/pkg/server"
)

// serveMain is the entry point for the serve command.
func serveMain(command *cobra.Command, _ []string) error {
	// Load the configuration and apply flag overrides.
	settings, logger, err := loadConfiguration()
	if err != nil {
		return err
	}
	flags := command.Flags()
	if flags.Changed("listen") {
		settings.Server.Listen = serveConfiguration.listen
	}
	if flags.Changed("root") {
		settings.Server.Root = serveConfiguration.root
	}
	if flags.Changed("maximum-connections") {
		settings.Server.MaximumConnections = serveConfiguration.maximumConnections
	}
	if flags.Changed("overflow") {
		settings.Server.Overflow = configuration.Overflow(serveConfiguration.overflow)
	}
	if serveConfiguration.noReusePort {
		settings.Server.ReusePort = false
	}
	if err := settings.EnsureValid(); err != nil {
		return errors.Wrap(err, "invalid server settings")
	}
	logger = logger.Sublogger("server")

	// Create a channel to track termination signals. We do this before creating
	// and starting other infrastructure so that we can ensure things terminate
	// smoothly, not mid-initialization.
	signalTermination := make(chan os.Signal, 1)
	signal.Notify(signalTermination, cmd.TerminationSignals...)
	defer signal.Stop(signalTermination)

	// Create the server.
	s, err := server.New(server.Options{
		Root:               settings.Server.Root,
		MaximumConnections: settings.Server.MaximumConnections,
		Overflow:           settings.Server.Overflow,
	}, logger)
	if err != nil {
		return errors.Wrap(err, "unable to create server")
	}

	// Create the listener. Serve takes responsibility for closing it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener, err := server.Listen(ctx, settings.Server.Listen, settings.Server.ReusePort)
	if err != nil {
		return err
	}

	// Serve incoming connections in a separate Goroutine, watching for serving
	// failure.
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.Serve(ctx, listener)
	}()

	// Wait for termination from a signal or the server. On a signal, cancel
	// serving and wait for live connections to be torn down.
	select {
	case sig := <-signalTermination:
		logger.Infof("Terminating on signal: %s", sig)
		cancel()
		must.Succeed(<-serverErrors, "server shutdown", logger)
		return nil
	case err := <-serverErrors:
		return errors.Wrap(err, "server failed")
	}
}

// serveCommand is the serve command.
var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Serve a directory to flatsync clients",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(serveMain),
}

// serveConfiguration stores configuration for the serve command.
var serveConfiguration struct {
	// help indicates whether or not to show help information and exit.
	help bool
	// listen is the listening address.
	listen string
	// root is the served directory.
	root string
	// maximumConnections is the connection ceiling.
	maximumConnections int
	// overflow is the overflow policy.
	overflow string
	// noReusePort disables address and port reuse on the listener.
	noReusePort bool
}

func init() {
	// Grab a handle for the command line flags.
	flags := serveCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&serveConfiguration.help, "help", "h", false, "Show help information")

	// Wire up server flags. Defaults mirror the built-in configuration and are
	// only applied when a flag is explicitly set.
	flags.StringVarP(&serveConfiguration.listen, "listen", "l", configuration.DefaultListenAddress, "Specify the listening address")
	flags.StringVarP(&serveConfiguration.root, "root", "r", ".", "Specify the directory to serve")
	flags.IntVarP(&serveConfiguration.maximumConnections, "maximum-connections", "m", configuration.DefaultMaximumConnections, "Specify the number of concurrently served connections")
	flags.StringVar(&serveConfiguration.overflow, "overflow", string(configuration.OverflowReject), "Specify the policy for connections beyond the ceiling (reject|wait)")
	flags.BoolVar(&serveConfiguration.noReusePort, "no-reuse-port", false, "Disable SO_REUSEADDR and SO_REUSEPORT on the listener")
}
