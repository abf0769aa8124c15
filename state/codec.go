// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/rlp"
)

// CodecVersion prefixes every stored record
const CodecVersion byte = 0

var errUnknownCodecVersion = errors.New("unknown codec version")

type codecImpl struct{}

// Codec serializes stored records as a version byte followed by RLP
var Codec = codecImpl{}

// Marshal serializes the value
func (codecImpl) Marshal(v interface{}) ([]byte, error) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	return append([]byte{CodecVersion}, b...), nil
}

// Unmarshal deserializes the bytes into v
func (codecImpl) Unmarshal(b []byte, v interface{}) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty record", errUnknownCodecVersion)
	}
	if b[0] != CodecVersion {
		return fmt.Errorf("%w: %d", errUnknownCodecVersion, b[0])
	}
	return rlp.DecodeBytes(b[1:], v)
}
