package datastore

import (
	"github.com/oklog/ulid/v2"

	"github.com/mangrove/mangrove/internal/aggregation"
)

// Key prefixes for different record types in BadgerDB.
const (
	prefixForm      = "f:" // Form models: f:<code>
	prefixEntity    = "e:" // Entities: e:<id>
	prefixShortCode = "s:" // Short code index: s:<tuple(type, short_code)> -> entity id
	prefixRecord    = "r:" // Data records: r:<ulid>
	prefixLog       = "l:" // Submission logs: l:<submission id>
	prefixView      = "v:" // View rows: v:<view>:<tuple><0x00><doc id>
)

func encodeFormKey(code string) []byte {
	return append([]byte(prefixForm), code...)
}

func encodeEntityKey(id string) []byte {
	return append([]byte(prefixEntity), id...)
}

// encodeShortCodeKey escapes both parts, so a type or short code containing
// the separator cannot collide with another pair.
func encodeShortCodeKey(entityType, shortCode string) []byte {
	key := make([]byte, 0, len(prefixShortCode)+len(entityType)+len(shortCode)+6)
	key = append(key, prefixShortCode...)
	key = encodeString(key, entityType)
	return encodeString(key, shortCode)
}

func encodeRecordKey(id ulid.ULID) []byte {
	key := make([]byte, 0, len(prefixRecord)+ulid.EncodedSize)
	key = append(key, prefixRecord...)
	key = append(key, id.String()...)
	return key
}

func encodeLogKey(id string) []byte {
	return append([]byte(prefixLog), id...)
}

// viewPrefix returns the prefix shared by every row of view.
func viewPrefix(view string) []byte {
	key := make([]byte, 0, len(prefixView)+len(view)+1)
	key = append(key, prefixView...)
	key = append(key, view...)
	key = append(key, ':')
	return key
}

// encodeViewKey builds the storage key of one emitted row. The document id
// suffix keeps rows with equal keys apart and in document id order.
func encodeViewKey(view string, key aggregation.Key, docID string) ([]byte, error) {
	b, err := encodeTuple(viewPrefix(view), key)
	if err != nil {
		return nil, err
	}
	b = append(b, tupleEnd)
	return append(b, docID...), nil
}

// decodeViewKey returns the row key of a storage key of view.
func decodeViewKey(view string, storageKey []byte) (aggregation.Key, error) {
	prefix := viewPrefix(view)
	if len(storageKey) < len(prefix) {
		return nil, ErrInvalidKey
	}
	key, _, err := decodeTuple(storageKey[len(prefix):])
	return key, err
}
