package inventory

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

const (
	// DigestSize is the size, in bytes, of a raw content digest.
	DigestSize = sha256.Size
	// HexDigestSize is the length of a hex-encoded content digest.
	HexDigestSize = 2 * DigestSize
)

// NewHasher returns the hash function used for content digests.
func NewHasher() hash.Hash {
	return sha256.New()
}

// DigestBytes returns the hex-encoded content digest of data.
func DigestBytes(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

// FileRecord describes one file in an inventory.
type FileRecord struct {
	// Name is the file name, unique within an inventory.
	Name string
	// Digest is the hex-encoded SHA-256 digest of the file's content.
	Digest string
}

// Inventory is an ordered list of file records describing one side's files.
// Its order is the enumeration order of the scan and carries no meaning.
type Inventory []FileRecord

// Names returns the file names in the inventory, in order.
func (i Inventory) Names() []string {
	names := make([]string, len(i))
	for r, record := range i {
		names[r] = record.Name
	}
	return names
}
