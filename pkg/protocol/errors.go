package protocol

import (
	"github.com/pkg/errors"
)

var (
	// ErrMalformedEnvelope indicates a short or garbled envelope.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrProtocolViolation indicates an unexpected kind or payload shape.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrPayloadTooLarge indicates that a payload would exceed
	// MaximumPayloadSize. Encoding never truncates.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidRecord indicates that a record can't be represented on the
	// wire.
	ErrInvalidRecord = errors.New("invalid record")
)
