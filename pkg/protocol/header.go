package protocol

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/inventory"
)

const (
	// headerMarkerFile introduces a file whose content follows the header.
	headerMarkerFile = 'F'
	// headerMarkerEnd terminates a batch. It is distinct from any file header,
	// so zero-byte files remain representable.
	headerMarkerEnd = 'E'

	// headerFixedSize is the size of the marker, size, and digest fields.
	headerFixedSize = 1 + 8 + inventory.DigestSize
	// MaximumHeaderNameLength is the longest name a transfer header can carry.
	MaximumHeaderNameLength = MaximumPayloadSize - headerFixedSize
)

// Header is a batch transfer header. A file header announces exactly Size raw
// bytes of content immediately following the envelope. The end-of-batch
// sentinel carries no name, size, or digest.
type Header struct {
	// End indicates the end-of-batch sentinel.
	End bool
	// Name is the file name.
	Name string
	// Size is the number of content bytes following the header.
	Size uint64
	// Digest is the hex-encoded content digest recorded by the sender's scan.
	Digest string
}

// EncodeHeader encodes a transfer header as an envelope of the specified
// kind.
func EncodeHeader(kind Kind, header *Header) (*Message, error) {
	// Handle the sentinel.
	payload := make([]byte, headerFixedSize, headerFixedSize+len(header.Name))
	if header.End {
		payload[0] = headerMarkerEnd
		return &Message{Kind: kind, Payload: payload}, nil
	}

	// Validate the file header.
	if header.Name == "" {
		return nil, errors.Wrap(ErrInvalidRecord, "transfer header without name")
	} else if len(header.Name) > MaximumHeaderNameLength {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "name of %d bytes", len(header.Name))
	}
	digest, err := hex.DecodeString(header.Digest)
	if err != nil || len(digest) != inventory.DigestSize {
		return nil, errors.Wrapf(ErrInvalidRecord, "digest for %q is not %d hex characters", header.Name, inventory.HexDigestSize)
	}

	// Encode.
	payload[0] = headerMarkerFile
	binary.BigEndian.PutUint64(payload[1:9], header.Size)
	copy(payload[9:headerFixedSize], digest)
	payload = append(payload, header.Name...)
	return &Message{Kind: kind, Payload: payload}, nil
}

// DecodeHeader decodes a transfer header from an envelope.
func DecodeHeader(message *Message) (*Header, error) {
	payload := message.Payload
	if len(payload) < headerFixedSize {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "transfer header of %d bytes", len(payload))
	}
	switch payload[0] {
	case headerMarkerEnd:
		if len(payload) != headerFixedSize || binary.BigEndian.Uint64(payload[1:9]) != 0 {
			return nil, errors.Wrap(ErrProtocolViolation, "end-of-batch sentinel carries data")
		}
		return &Header{End: true}, nil
	case headerMarkerFile:
		if len(payload) == headerFixedSize {
			return nil, errors.Wrap(ErrProtocolViolation, "transfer header without name")
		}
		return &Header{
			Name:   string(payload[headerFixedSize:]),
			Size:   binary.BigEndian.Uint64(payload[1:9]),
			Digest: hex.EncodeToString(payload[9:headerFixedSize]),
		}, nil
	default:
		return nil, errors.Wrapf(ErrProtocolViolation, "unknown transfer header marker 0x%02x", payload[0])
	}
}
