// Package configuration defines the flatsync YAML configuration file and its
// defaults.
package configuration

import (
	"os"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/encoding"
	"github.com/flatsync/flatsync/pkg/logging"
)

const (
	// DefaultPath is the configuration file loaded when none is specified. It
	// is optional.
	DefaultPath = "flatsync.yml"

	// DefaultListenAddress is the default server listening address.
	DefaultListenAddress = ":8080"
	// DefaultServerAddress is the default address clients connect to.
	DefaultServerAddress = "127.0.0.1:8080"
	// DefaultMaximumConnections is the default connection ceiling.
	DefaultMaximumConnections = 10
)

// Overflow specifies what the server does with connections arriving while the
// connection ceiling is reached.
type Overflow string

const (
	// OverflowReject refuses the connection with a protocol-level refusal and
	// keeps accepting.
	OverflowReject Overflow = "reject"
	// OverflowWait stops accepting until a slot frees up. Pending connections
	// wait in the listen backlog.
	OverflowWait Overflow = "wait"
)

// Valid returns whether or not the overflow policy is recognized.
func (o Overflow) Valid() bool {
	return o == OverflowReject || o == OverflowWait
}

// Server is the server configuration.
type Server struct {
	// Listen is the TCP address to listen on.
	Listen string `yaml:"listen"`
	// Root is the directory whose files are served.
	Root string `yaml:"root"`
	// MaximumConnections is the connection ceiling.
	MaximumConnections int `yaml:"maximumConnections"`
	// Overflow is the policy applied when the ceiling is reached.
	Overflow Overflow `yaml:"overflow"`
	// ReusePort enables SO_REUSEADDR and SO_REUSEPORT on the listener.
	ReusePort bool `yaml:"reusePort"`
}

// Client is the client configuration.
type Client struct {
	// Address is the server address to connect to.
	Address string `yaml:"address"`
	// Root is the local directory used for DIFF inventories and received
	// files.
	Root string `yaml:"root"`
}

// Log is the logging configuration.
type Log struct {
	// Level is the log level name.
	Level string `yaml:"level"`
}

// Configuration is the YAML configuration object type.
type Configuration struct {
	// Server is the server configuration.
	Server Server `yaml:"server"`
	// Client is the client configuration.
	Client Client `yaml:"client"`
	// Log is the logging configuration.
	Log Log `yaml:"log"`
}

// Default returns the default configuration.
func Default() *Configuration {
	return &Configuration{
		Server: Server{
			Listen:             DefaultListenAddress,
			Root:               ".",
			MaximumConnections: DefaultMaximumConnections,
			Overflow:           OverflowReject,
			ReusePort:          true,
		},
		Client: Client{
			Address: DefaultServerAddress,
			Root:    ".",
		},
		Log: Log{
			Level: logging.LevelInfo.String(),
		},
	}
}

// Load loads the configuration file at path on top of the defaults. If path is
// empty, DefaultPath is tried and its absence is not an error.
func Load(path string) (*Configuration, error) {
	result := Default()

	// Determine the path and whether or not it's optional.
	optional := path == ""
	if optional {
		path = DefaultPath
	}

	// Load the file.
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		if os.IsNotExist(err) && optional {
			return result, nil
		}
		return nil, errors.Wrapf(err, "unable to load configuration from %s", path)
	}

	// Validate.
	if err := result.EnsureValid(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}

	// Success.
	return result, nil
}

// EnsureValid ensures that the configuration is valid.
func (c *Configuration) EnsureValid() error {
	if c.Server.MaximumConnections < 1 {
		return errors.Errorf("maximum connections must be positive (got %d)", c.Server.MaximumConnections)
	} else if !c.Server.Overflow.Valid() {
		return errors.Errorf("unknown overflow policy %q", c.Server.Overflow)
	} else if _, ok := logging.NameToLevel(c.Log.Level); !ok {
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// LogLevel returns the configured log level. It assumes that the
// configuration is valid.
func (c *Configuration) LogLevel() logging.Level {
	level, _ := logging.NameToLevel(c.Log.Level)
	return level
}
