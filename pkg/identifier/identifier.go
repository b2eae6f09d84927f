package identifier

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// PrefixConnection is the prefix used for server connection identifiers.
	PrefixConnection = "conn_"
	// PrefixClient is the prefix used for client session identifiers.
	PrefixClient = "clnt_"
)

// New generates a new collision-resistant identifier with the specified
// prefix. The random component is a version 4 UUID without separators.
func New(prefix string) (string, error) {
	random, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Wrap(err, "unable to generate random identifier")
	}
	return prefix + strings.ReplaceAll(random.String(), "-", ""), nil
}

// Short returns an abbreviated form of an identifier suitable for log scopes.
func Short(identifier string) string {
	const shortRandomLength = 8
	if index := strings.IndexByte(identifier, '_'); index != -1 && len(identifier) > index+1+shortRandomLength {
		return identifier[:index+1+shortRandomLength]
	}
	return identifier
}
