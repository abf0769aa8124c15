// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package tokenbridge

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// NativeAsset keys the chain's native coin in limit and ledger tables
var NativeAsset = common.Address{}

const (
	// recipient | value | txHash | bridge
	TokenMessageLen = common.AddressLength + 32 + common.HashLength + common.AddressLength
	// asset | recipient | value | txHash | bridge
	MultiTokenMessageLen = common.AddressLength + TokenMessageLen
)

// TokenMessage is the signed payload of a home to foreign token transfer
type TokenMessage struct {
	Asset           common.Address
	Recipient       common.Address
	Value           *uint256.Int
	TransactionHash common.Hash
	Bridge          common.Address
}

// Bytes encodes the message. The asset is only part of the encoding in the
// multi-token mode.
func (t *TokenMessage) Bytes(multiToken bool) []byte {
	size := TokenMessageLen
	if multiToken {
		size = MultiTokenMessageLen
	}
	b := make([]byte, 0, size)
	if multiToken {
		b = append(b, t.Asset.Bytes()...)
	}
	value := t.Value.Bytes32()
	b = append(b, t.Recipient.Bytes()...)
	b = append(b, value[:]...)
	b = append(b, t.TransactionHash.Bytes()...)
	return append(b, t.Bridge.Bytes()...)
}

// DecodeTokenMessage parses either token message layout
func DecodeTokenMessage(b []byte, multiToken bool) (*TokenMessage, error) {
	want := TokenMessageLen
	if multiToken {
		want = MultiTokenMessageLen
	}
	if len(b) != want {
		return nil, fmt.Errorf("%w: token message length %d, expected %d", ErrMalformedMessage, len(b), want)
	}

	t := &TokenMessage{}
	if multiToken {
		t.Asset = common.BytesToAddress(b[:common.AddressLength])
		b = b[common.AddressLength:]
	}
	t.Recipient = common.BytesToAddress(b[:common.AddressLength])
	b = b[common.AddressLength:]
	t.Value = new(uint256.Int).SetBytes(b[:32])
	b = b[32:]
	t.TransactionHash = common.BytesToHash(b[:common.HashLength])
	b = b[common.HashLength:]
	t.Bridge = common.BytesToAddress(b)
	return t, nil
}

// Affirmation is a validator's attestation of a foreign-chain transfer
type Affirmation struct {
	Asset           common.Address
	Recipient       common.Address
	Value           *uint256.Int
	TransactionHash common.Hash
}

// Hash keys the affirmation for signature counting. Two affirmations of the
// same transaction hash with different values are distinct keys.
func (a *Affirmation) Hash(multiToken bool) common.Hash {
	value := a.Value.Bytes32()
	if multiToken {
		return Keccak256(a.Asset.Bytes(), a.Recipient.Bytes(), value[:], a.TransactionHash.Bytes())
	}
	return Keccak256(a.Recipient.Bytes(), value[:], a.TransactionHash.Bytes())
}
