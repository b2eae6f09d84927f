// Package encoding provides helpers for loading structured configuration
// files.
package encoding

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"gopkg.in/yaml.v3"
)

// LoadAndUnmarshal reads the file at the specified path and invokes the
// specified unmarshaling callback (usually a closure) to decode the data.
// Non-existence errors are passed through unwrapped so that callers can test
// them with os.IsNotExist.
func LoadAndUnmarshal(path string, unmarshal func([]byte) error) error {
	// Grab the file contents.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return errors.Wrap(err, "unable to load file")
	}

	// Perform the unmarshaling.
	if err := unmarshal(data); err != nil {
		return errors.Wrap(err, "unable to unmarshal data")
	}

	// Success.
	return nil
}

// LoadAndUnmarshalYAML loads YAML data from the specified path and decodes it
// into the specified structure. Unknown fields are rejected. An empty file
// leaves value untouched.
func LoadAndUnmarshalYAML(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(value); err != nil && err != io.EOF {
			return err
		}
		return nil
	})
}
