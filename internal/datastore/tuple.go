package datastore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mangrove/mangrove/internal/aggregation"
	"github.com/mangrove/mangrove/internal/utils"
)

// Tuple element markers. Their order is the sort order of element types.
const (
	tupleEnd     byte = 0x00
	nullMarker   byte = 0x05
	falseMarker  byte = 0x06
	trueMarker   byte = 0x07
	numberMarker byte = 0x10
	stringMarker byte = 0x20
	maxMarker    byte = 0xf0
)

// String escaping: 0x00 inside a string becomes 0x00 0xff and the string is
// closed by 0x00 0x01, so a string sorts before any of its extensions.
const (
	escape      byte = 0x00
	escapedTerm byte = 0x01
	escaped00   byte = 0xff
)

// encodeTuple appends the order-preserving encoding of key to b. Byte order
// of encodings equals aggregation.CompareKeys order of keys.
func encodeTuple(b []byte, key aggregation.Key) ([]byte, error) {
	for i, elem := range key {
		var err error
		b, err = encodeElem(b, elem)
		if err != nil {
			return nil, fmt.Errorf("key element %d: %w", i, err)
		}
	}
	return b, nil
}

func encodeElem(b []byte, elem any) ([]byte, error) {
	switch v := elem.(type) {
	case nil:
		return append(b, nullMarker), nil
	case bool:
		if v {
			return append(b, trueMarker), nil
		}
		return append(b, falseMarker), nil
	case string:
		return encodeString(b, v), nil
	}
	if elem == aggregation.MaxKey {
		return append(b, maxMarker), nil
	}
	if f, ok := utils.ToFloat64(elem); ok {
		return encodeFloat(b, f), nil
	}
	return nil, fmt.Errorf("%w: unsupported key element %T", ErrInvalidKey, elem)
}

func encodeString(b []byte, s string) []byte {
	b = append(b, stringMarker)
	data := []byte(s)
	for {
		i := bytes.IndexByte(data, escape)
		if i == -1 {
			break
		}
		b = append(b, data[:i]...)
		b = append(b, escape, escaped00)
		data = data[i+1:]
	}
	b = append(b, data...)
	return append(b, escape, escapedTerm)
}

// encodeFloat flips the sign bit of positive numbers and every bit of
// negative ones so the big endian bytes sort numerically.
func encodeFloat(b []byte, f float64) []byte {
	if f == 0 {
		f = 0 // folds -0 into +0
	}
	u := math.Float64bits(f)
	if u&(1<<63) != 0 {
		u = ^u
	} else {
		u |= 1 << 63
	}
	b = append(b, numberMarker)
	return binary.BigEndian.AppendUint64(b, u)
}

// decodeTuple reads one encoded key up to the tuple terminator and returns
// the remaining bytes.
func decodeTuple(b []byte) (aggregation.Key, []byte, error) {
	key := aggregation.Key{}
	for {
		if len(b) == 0 {
			return nil, nil, fmt.Errorf("%w: missing tuple terminator", ErrInvalidKey)
		}
		marker := b[0]
		b = b[1:]
		switch marker {
		case tupleEnd:
			return key, b, nil
		case nullMarker:
			key = append(key, nil)
		case falseMarker:
			key = append(key, false)
		case trueMarker:
			key = append(key, true)
		case maxMarker:
			key = append(key, aggregation.MaxKey)
		case numberMarker:
			if len(b) < 8 {
				return nil, nil, fmt.Errorf("%w: truncated number", ErrInvalidKey)
			}
			u := binary.BigEndian.Uint64(b)
			if u&(1<<63) != 0 {
				u &^= 1 << 63
			} else {
				u = ^u
			}
			key = append(key, math.Float64frombits(u))
			b = b[8:]
		case stringMarker:
			var s []byte
			var err error
			s, b, err = decodeString(b)
			if err != nil {
				return nil, nil, err
			}
			key = append(key, string(s))
		default:
			return nil, nil, fmt.Errorf("%w: unknown marker %#x", ErrInvalidKey, marker)
		}
	}
}

func decodeString(b []byte) ([]byte, []byte, error) {
	var out []byte
	for {
		i := bytes.IndexByte(b, escape)
		if i == -1 || i+1 >= len(b) {
			return nil, nil, fmt.Errorf("%w: unterminated string", ErrInvalidKey)
		}
		out = append(out, b[:i]...)
		switch b[i+1] {
		case escapedTerm:
			return out, b[i+2:], nil
		case escaped00:
			out = append(out, 0x00)
			b = b[i+2:]
		default:
			return nil, nil, fmt.Errorf("%w: malformed escape %#x", ErrInvalidKey, b[i+1])
		}
	}
}
