package datastore

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// Documents are stored as snappy compressed JSON, view row values as plain JSON.

func encodeDocument(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return snappy.Encode(nil, data), nil
}

func decodeDocument(data []byte, v any) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return fmt.Errorf("snappy decompress failed: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}

func encodeValue(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decodeValue(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal view value: %w", err)
	}
	return v, nil
}
