// internal/storage/models/codec.go
package models

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Encode serialises a record with borsh.
func Encode(v interface{}) ([]byte, error) {
	data, err := bin.MarshalBorsh(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return data, nil
}

// Decode parses a borsh record into v.
func Decode(data []byte, v interface{}) error {
	if err := bin.UnmarshalBorsh(v, data); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}
