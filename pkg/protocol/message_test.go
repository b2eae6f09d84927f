package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
)

// TestEncodeDecode tests that Decode inverts Encode for valid messages.
func TestEncodeDecode(t *testing.T) {
	tests := []*Message{
		{Kind: KindList},
		{Kind: KindDiff, Payload: []byte("x")},
		{Kind: KindPull, Payload: bytes.Repeat([]byte{0xff}, MaximumPayloadSize)},
		{Kind: KindLeave, Payload: []byte(Acknowledgement)},
	}
	for _, message := range tests {
		envelope, err := Encode(message)
		if err != nil {
			t.Fatalf("%s: unable to encode: %v", message.Kind, err)
		} else if len(envelope) != EnvelopeSize {
			t.Fatalf("%s: envelope has size %d", message.Kind, len(envelope))
		}
		decoded, err := Decode(envelope)
		if err != nil {
			t.Fatalf("%s: unable to decode: %v", message.Kind, err)
		}
		if diff := cmp.Diff(message, decoded); diff != "" {
			t.Errorf("%s: round trip mismatch (-expected +actual):\n%s", message.Kind, diff)
		}
	}
}

// TestEncodeRejectsInvalid tests that invalid messages fail to encode rather
// than being truncated.
func TestEncodeRejectsInvalid(t *testing.T) {
	if _, err := Encode(&Message{Kind: KindDiff, Payload: make([]byte, MaximumPayloadSize+1)}); !errors.Is(err, ErrPayloadTooLarge) {
		t.Error("expected payload too large error, got:", err)
	}
	if _, err := Encode(&Message{Kind: Kind(7)}); !errors.Is(err, ErrProtocolViolation) {
		t.Error("expected protocol violation for unknown kind, got:", err)
	}
}

// TestDecodeRejectsMalformed tests Decode on malformed envelopes.
func TestDecodeRejectsMalformed(t *testing.T) {
	valid, err := Encode(&Message{Kind: KindList})
	if err != nil {
		t.Fatal("unable to encode:", err)
	}

	if _, err := Decode(valid[:EnvelopeSize-1]); !errors.Is(err, ErrMalformedEnvelope) {
		t.Error("expected malformed envelope for short input, got:", err)
	}

	oversized := append([]byte(nil), valid...)
	oversized[4], oversized[5] = 0xff, 0xff
	if _, err := Decode(oversized); !errors.Is(err, ErrMalformedEnvelope) {
		t.Error("expected malformed envelope for oversized length, got:", err)
	}

	unknown := append([]byte(nil), valid...)
	unknown[3] = 9
	if _, err := Decode(unknown); !errors.Is(err, ErrProtocolViolation) {
		t.Error("expected protocol violation for unknown kind, got:", err)
	}
}

// TestDecoderLoopsReads tests that the decoder assembles envelopes delivered
// one byte at a time and can then read raw bytes that follow them.
func TestDecoderLoopsReads(t *testing.T) {
	stream := &bytes.Buffer{}
	encoder := NewEncoder(stream)
	first := &Message{Kind: KindDiff, Payload: []byte("first")}
	second := &Message{Kind: KindLeave, Payload: []byte("second")}
	if err := encoder.Encode(first); err != nil {
		t.Fatal("unable to encode:", err)
	}
	if _, err := io.WriteString(encoder, "raw"); err != nil {
		t.Fatal("unable to write raw bytes:", err)
	}
	if err := encoder.Encode(second); err != nil {
		t.Fatal("unable to encode:", err)
	}

	decoder := NewDecoder(iotest.OneByteReader(stream))
	if decoded, err := decoder.Decode(); err != nil {
		t.Fatal("unable to decode first envelope:", err)
	} else if diff := cmp.Diff(first, decoded); diff != "" {
		t.Error("first envelope mismatch:\n", diff)
	}
	raw := make([]byte, 3)
	if _, err := io.ReadFull(decoder, raw); err != nil {
		t.Fatal("unable to read raw bytes:", err)
	} else if string(raw) != "raw" {
		t.Error("raw bytes mismatch:", string(raw))
	}
	if decoded, err := decoder.Decode(); err != nil {
		t.Fatal("unable to decode second envelope:", err)
	} else if diff := cmp.Diff(second, decoded); diff != "" {
		t.Error("second envelope mismatch:\n", diff)
	}
	if _, err := decoder.Decode(); err != io.EOF {
		t.Error("expected clean EOF, got:", err)
	}
}

// TestDecoderShortStream tests that a stream ending mid-envelope yields a
// malformed envelope error.
func TestDecoderShortStream(t *testing.T) {
	decoder := NewDecoder(strings.NewReader("partial envelope"))
	if _, err := decoder.Decode(); !errors.Is(err, ErrMalformedEnvelope) {
		t.Error("expected malformed envelope, got:", err)
	}
}

// TestParseKind tests that kind names round trip.
func TestParseKind(t *testing.T) {
	for _, kind := range []Kind{KindList, KindDiff, KindPull, KindLeave} {
		if parsed, ok := ParseKind(kind.String()); !ok || parsed != kind {
			t.Errorf("kind %s did not round trip", kind)
		}
	}
	if _, ok := ParseKind("PUSH"); ok {
		t.Error("unknown command parsed")
	}
}
