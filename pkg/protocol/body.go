package protocol

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/inventory"
)

// Bodies that may exceed one envelope (DIFF inventories and deltas, PULL
// filters) are sent as a run of non-empty envelopes of one kind terminated by
// an empty envelope of the same kind. An empty body is just the terminator.

// maximumBodyPages bounds the number of envelopes accepted for one body.
const maximumBodyPages = 1 << 16

// writeBody transmits payloads as a paged body of the specified kind.
func writeBody(encoder *Encoder, kind Kind, pages [][]byte) error {
	for _, page := range pages {
		if err := encoder.Encode(&Message{Kind: kind, Payload: page}); err != nil {
			return err
		}
	}
	if err := encoder.Encode(&Message{Kind: kind}); err != nil {
		return errors.Wrap(err, "unable to transmit body terminator")
	}
	return nil
}

// readBody receives the pages of a paged body whose first envelope has
// already been decoded, invoking handle for each non-empty page.
func readBody(decoder *Decoder, first *Message, handle func([]byte) error) error {
	kind := first.Kind
	page := first
	for pages := 0; len(page.Payload) > 0; pages++ {
		if pages == maximumBodyPages {
			return errors.Wrapf(ErrProtocolViolation, "%s body exceeds %d envelopes", kind, maximumBodyPages)
		}
		if err := handle(page.Payload); err != nil {
			return err
		}
		next, err := decoder.Decode()
		if err != nil {
			return errors.Wrapf(err, "unable to receive %s body", kind)
		} else if next.Kind != kind {
			return errors.Wrapf(ErrProtocolViolation, "%s envelope inside %s body", next.Kind, kind)
		}
		page = next
	}
	return nil
}

// WriteRecordBody transmits records as a paged body of the specified kind.
func WriteRecordBody(encoder *Encoder, kind Kind, records []inventory.FileRecord) error {
	var pages [][]byte
	for start := 0; start < len(records); start += RecordsPerEnvelope {
		end := start + RecordsPerEnvelope
		if end > len(records) {
			end = len(records)
		}
		page, err := EncodeRecords(records[start:end])
		if err != nil {
			return err
		}
		pages = append(pages, page)
	}
	return writeBody(encoder, kind, pages)
}

// ReadRecordBody receives a paged record body whose first envelope has
// already been decoded.
func ReadRecordBody(decoder *Decoder, first *Message) (inventory.Inventory, error) {
	var result inventory.Inventory
	err := readBody(decoder, first, func(payload []byte) error {
		records, err := DecodeRecords(payload)
		if err != nil {
			return err
		}
		result = append(result, records...)
		return nil
	})
	return result, err
}

// nameSeparator separates entries within a name body page.
const nameSeparator = '\n'

// PageNames packs newline-separated names into envelope-sized pages. It fails
// with ErrInvalidRecord for empty names or names containing a newline, and
// with ErrPayloadTooLarge for a name that can't fit in one envelope.
func PageNames(names []string) ([][]byte, error) {
	var pages [][]byte
	var page []byte
	for _, name := range names {
		if name == "" {
			return nil, errors.Wrap(ErrInvalidRecord, "empty name")
		} else if strings.IndexByte(name, nameSeparator) != -1 {
			return nil, errors.Wrapf(ErrInvalidRecord, "name %q contains a newline", name)
		} else if len(name) > MaximumPayloadSize {
			return nil, errors.Wrapf(ErrPayloadTooLarge, "name of %d bytes", len(name))
		}
		needed := len(name)
		if len(page) > 0 {
			needed++
		}
		if len(page)+needed > MaximumPayloadSize {
			pages = append(pages, page)
			page = nil
		}
		if len(page) > 0 {
			page = append(page, nameSeparator)
		}
		page = append(page, name...)
	}
	if len(page) > 0 {
		pages = append(pages, page)
	}
	return pages, nil
}

// WriteNameBody transmits names as a paged body of the specified kind.
func WriteNameBody(encoder *Encoder, kind Kind, names []string) error {
	pages, err := PageNames(names)
	if err != nil {
		return err
	}
	return writeBody(encoder, kind, pages)
}

// ReadNameBody receives a paged name body whose first envelope has already
// been decoded. Empty entries are ignored.
func ReadNameBody(decoder *Decoder, first *Message) ([]string, error) {
	var names []string
	err := readBody(decoder, first, func(payload []byte) error {
		for _, entry := range bytes.Split(payload, []byte{nameSeparator}) {
			if len(entry) > 0 {
				names = append(names, string(entry))
			}
		}
		return nil
	})
	return names, err
}
