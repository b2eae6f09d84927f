package protocol

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/flatsync/flatsync/pkg/inventory"
	"github.com/flatsync/flatsync/pkg/logging"
)

const (
	// recordNameFieldSize is the size of the zero-padded name field.
	recordNameFieldSize = 127
	// MaximumRecordNameLength is the longest file name (in bytes) that can be
	// carried in a record.
	MaximumRecordNameLength = recordNameFieldSize
	// RecordSize is the fixed size of one inventory record: a name length
	// byte, the name field, and the raw digest.
	RecordSize = 1 + recordNameFieldSize + inventory.DigestSize
	// RecordsPerEnvelope is the number of records that fit in one envelope.
	RecordsPerEnvelope = MaximumPayloadSize / RecordSize
)

// ValidateRecord verifies that a record can be carried on the wire. It fails
// with ErrInvalidRecord for empty or overlong names and malformed digests.
func ValidateRecord(record inventory.FileRecord) error {
	if record.Name == "" {
		return errors.Wrap(ErrInvalidRecord, "empty name")
	} else if len(record.Name) > MaximumRecordNameLength {
		return errors.Wrapf(ErrInvalidRecord, "name %q exceeds %d bytes", record.Name, MaximumRecordNameLength)
	} else if len(record.Digest) != inventory.HexDigestSize {
		return errors.Wrapf(ErrInvalidRecord, "digest for %q is not %d hex characters", record.Name, inventory.HexDigestSize)
	}
	return nil
}

// Representable returns the records that can be carried on the wire, in
// order. Other records are logged and omitted.
func Representable(records []inventory.FileRecord, logger *logging.Logger) []inventory.FileRecord {
	result := make([]inventory.FileRecord, 0, len(records))
	for _, record := range records {
		if err := ValidateRecord(record); err != nil {
			logger.Warnf("Omitting %q from inventory: %v", record.Name, err)
			continue
		}
		result = append(result, record)
	}
	return result
}

// encodeRecord encodes a single record into a RecordSize-byte slot.
func encodeRecord(slot []byte, record inventory.FileRecord) error {
	// Validate the record and decode its digest.
	if err := ValidateRecord(record); err != nil {
		return err
	}
	digest, err := hex.DecodeString(record.Digest)
	if err != nil {
		return errors.Wrapf(ErrInvalidRecord, "digest for %q is not hexadecimal", record.Name)
	}

	// Fill the slot.
	slot[0] = byte(len(record.Name))
	nameField := slot[1 : 1+recordNameFieldSize]
	n := copy(nameField, record.Name)
	for i := n; i < len(nameField); i++ {
		nameField[i] = 0
	}
	copy(slot[1+recordNameFieldSize:], digest)

	// Success.
	return nil
}

// EncodeRecords encodes records back to back. It fails with
// ErrPayloadTooLarge if they don't fit in a single envelope and with
// ErrInvalidRecord if any record can't be represented.
func EncodeRecords(records []inventory.FileRecord) ([]byte, error) {
	if len(records) > RecordsPerEnvelope {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "%d records exceed envelope capacity of %d", len(records), RecordsPerEnvelope)
	}
	payload := make([]byte, len(records)*RecordSize)
	for r, record := range records {
		if err := encodeRecord(payload[r*RecordSize:(r+1)*RecordSize], record); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// DecodeRecords decodes a payload of back-to-back records. The record count
// is implied by the payload length, which must be a whole multiple of
// RecordSize.
func DecodeRecords(payload []byte) ([]inventory.FileRecord, error) {
	if len(payload)%RecordSize != 0 {
		return nil, errors.Wrapf(ErrMalformedEnvelope, "payload length %d is not a multiple of record size %d", len(payload), RecordSize)
	}
	count := len(payload) / RecordSize
	records := make([]inventory.FileRecord, count)
	for r := 0; r < count; r++ {
		slot := payload[r*RecordSize : (r+1)*RecordSize]
		length := int(slot[0])
		if length == 0 || length > MaximumRecordNameLength {
			return nil, errors.Wrapf(ErrMalformedEnvelope, "record %d has invalid name length %d", r, length)
		}
		records[r] = inventory.FileRecord{
			Name:   string(slot[1 : 1+length]),
			Digest: hex.EncodeToString(slot[1+recordNameFieldSize:]),
		}
	}
	return records, nil
}
