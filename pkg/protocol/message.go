package protocol

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	// MaximumPayloadSize is the payload capacity of every envelope.
	MaximumPayloadSize = 4096
	// envelopeHeaderSize is the size of the kind and length fields.
	envelopeHeaderSize = 8
	// EnvelopeSize is the fixed size of every envelope on the wire.
	EnvelopeSize = envelopeHeaderSize + MaximumPayloadSize

	// decoderBufferSize is the size of the decoder's read buffer. It holds a
	// few envelopes so that small files following a header are usually
	// served from the same read.
	decoderBufferSize = 4 * EnvelopeSize
)

// Message is the sole unit of the wire protocol.
type Message struct {
	// Kind is the command kind.
	Kind Kind
	// Payload is the payload. Its length is the envelope's payload length and
	// must not exceed MaximumPayloadSize.
	Payload []byte
}

// NewMessage creates a message of the specified kind with a copy of payload.
func NewMessage(kind Kind, payload []byte) *Message {
	return &Message{Kind: kind, Payload: append([]byte(nil), payload...)}
}

// validate verifies that the message can be encoded.
func (m *Message) validate() error {
	if !m.Kind.Valid() {
		return errors.Wrapf(ErrProtocolViolation, "unknown kind %d", uint32(m.Kind))
	} else if len(m.Payload) > MaximumPayloadSize {
		return errors.Wrapf(ErrPayloadTooLarge, "%d bytes", len(m.Payload))
	}
	return nil
}

// encodeInto encodes the message into an envelope-sized buffer.
func (m *Message) encodeInto(envelope []byte) {
	binary.BigEndian.PutUint32(envelope[0:4], uint32(m.Kind))
	binary.BigEndian.PutUint32(envelope[4:8], uint32(len(m.Payload)))
	n := copy(envelope[envelopeHeaderSize:], m.Payload)
	for i := envelopeHeaderSize + n; i < len(envelope); i++ {
		envelope[i] = 0
	}
}

// Encode encodes a message into a new envelope of exactly EnvelopeSize bytes.
func Encode(message *Message) ([]byte, error) {
	if err := message.validate(); err != nil {
		return nil, err
	}
	envelope := make([]byte, EnvelopeSize)
	message.encodeInto(envelope)
	return envelope, nil
}

// Decode decodes exactly one envelope. It fails with ErrMalformedEnvelope if
// the envelope is short or declares an oversized payload, and with
// ErrProtocolViolation if the kind is unknown.
func Decode(envelope []byte) (*Message, error) {
	// Verify the envelope size.
	if len(envelope) < EnvelopeSize {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "short envelope (%d of %d bytes)", len(envelope), EnvelopeSize)
	} else if len(envelope) > EnvelopeSize {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "oversized envelope (%d bytes)", len(envelope))
	}

	// Decode the header fields.
	kind := Kind(binary.BigEndian.Uint32(envelope[0:4]))
	length := binary.BigEndian.Uint32(envelope[4:8])
	if length > MaximumPayloadSize {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "declared payload length %d exceeds maximum", length)
	} else if !kind.Valid() {
		return nil, errors.Wrapf(ErrProtocolViolation, "unknown kind %d", uint32(kind))
	}

	// Extract the payload.
	return NewMessage(kind, envelope[envelopeHeaderSize:envelopeHeaderSize+length]), nil
}

// Encoder writes envelopes and raw bytes to a stream.
type Encoder struct {
	// writer is the underlying stream.
	writer io.Writer
	// envelope is a staging area for encoding envelopes.
	envelope []byte
}

// NewEncoder creates a new encoder.
func NewEncoder(writer io.Writer) *Encoder {
	return &Encoder{
		writer:   writer,
		envelope: make([]byte, EnvelopeSize),
	}
}

// Encode transmits one envelope.
func (e *Encoder) Encode(message *Message) error {
	if err := message.validate(); err != nil {
		return err
	}
	message.encodeInto(e.envelope)
	if _, err := e.writer.Write(e.envelope); err != nil {
		return errors.Wrap(err, "unable to transmit envelope")
	}
	return nil
}

// Write implements io.Writer.Write, transmitting raw bytes without framing.
// It is used for file content following a transfer header.
func (e *Encoder) Write(data []byte) (int, error) {
	return e.writer.Write(data)
}

// Decoder reads envelopes and raw bytes from a stream.
type Decoder struct {
	// reader is the underlying stream, buffered. Raw reads must go through
	// the same buffer as envelope reads.
	reader *bufio.Reader
	// envelope is a staging area for receiving envelopes.
	envelope []byte
}

// NewDecoder creates a new decoder.
func NewDecoder(reader io.Reader) *Decoder {
	return &Decoder{
		reader:   bufio.NewReaderSize(reader, decoderBufferSize),
		envelope: make([]byte, EnvelopeSize),
	}
}

// Decode receives one envelope. Reads are looped until exactly one envelope
// has been filled. If the stream ends cleanly before the first byte, io.EOF is
// returned unwrapped. If it ends mid-envelope, ErrMalformedEnvelope is
// returned.
func (d *Decoder) Decode() (*Message, error) {
	if n, err := io.ReadFull(d.reader, d.envelope); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		} else if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrMalformedEnvelope, "peer closed after %d of %d bytes", n, EnvelopeSize)
		}
		return nil, errors.Wrap(err, "unable to receive envelope")
	}
	return Decode(d.envelope)
}

// Read implements io.Reader.Read, reading raw bytes without framing. It is
// used for file content following a transfer header.
func (d *Decoder) Read(buffer []byte) (int, error) {
	return d.reader.Read(buffer)
}
