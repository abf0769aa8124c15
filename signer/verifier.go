// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/cache"
)

const DefaultRecoveryCacheSize = 4096

// Verifier recovers signer addresses, memoizing recoveries by
// keccak256(digest ‖ signature). Relayers racing on the same message resubmit
// identical signatures, so the same recovery is requested repeatedly.
type Verifier struct {
	recovered *cache.LRUCache[common.Hash, common.Address]
}

// NewVerifier returns a verifier caching up to cacheSize recoveries
func NewVerifier(cacheSize int) (*Verifier, error) {
	c, err := cache.NewLRUCache[common.Hash, common.Address](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Verifier{recovered: c}, nil
}

// Recover returns the address that signed message
func (v *Verifier) Recover(message, sig []byte) (common.Address, error) {
	digest := Digest(message)
	key := tokenbridge.Keccak256(digest[:], sig)
	return v.recovered.Get(key, func(common.Hash) (common.Address, error) {
		return RecoverAddress(digest, sig)
	}, false)
}
