// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package tokenbridge

import (
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// Keccak256 returns the legacy keccak256 digest of the concatenated inputs
func Keccak256(data ...[]byte) common.Hash {
	return common.Hash(crypto.Keccak256Hash(data...))
}

// Keccak4 returns the first four bytes of the keccak256 digest of s. Bridge and
// fee manager modes are identified by these tags.
func Keccak4(s string) [4]byte {
	var tag [4]byte
	copy(tag[:], crypto.Keccak256([]byte(s)))
	return tag
}
