// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// Limits is the per-asset limit configuration. A zero DailyLimit disables
// outbound transfers of the asset.
type Limits struct {
	DailyLimit          *uint256.Int
	MaxPerTx            *uint256.Int
	MinPerTx            *uint256.Int
	ExecutionDailyLimit *uint256.Int
	ExecutionMaxPerTx   *uint256.Int
}

// Copy returns a deep copy with nil fields replaced by zero
func (l *Limits) Copy() *Limits {
	return &Limits{
		DailyLimit:          orZero(l.DailyLimit),
		MaxPerTx:            orZero(l.MaxPerTx),
		MinPerTx:            orZero(l.MinPerTx),
		ExecutionDailyLimit: orZero(l.ExecutionDailyLimit),
		ExecutionMaxPerTx:   orZero(l.ExecutionMaxPerTx),
	}
}

// SignatureRecord tracks the signatures gathered for one message or
// affirmation hash. Once Collected is set the record never changes again.
type SignatureRecord struct {
	Collected   bool
	Signers     []common.Address
	Signatures  [][]byte
	Message     []byte
	Responsible common.Address
}

// Count is the number of validators that signed
func (r *SignatureRecord) Count() uint64 {
	return uint64(len(r.Signers))
}

// HasSigned reports whether addr already signed
func (r *SignatureRecord) HasSigned(addr common.Address) bool {
	for _, s := range r.Signers {
		if s == addr {
			return true
		}
	}
	return false
}

// ExecutionStatus is the outcome of a collected affirmation or relayed
// message
type ExecutionStatus struct {
	Success  bool
	Deferred bool
}

// OutOfLimitEntry is value held back because it exceeded execution limits
type OutOfLimitEntry struct {
	Asset     common.Address
	Recipient common.Address
	Value     *uint256.Int
	Remaining *uint256.Int
}

// FeeConfig selects the fee strategy and its rates. Rates are scaled so
// that 1e18 is 100%.
type FeeConfig struct {
	Kind       uint8
	HomeFee    *uint256.Int
	ForeignFee *uint256.Int
}

// PendingFee is the fee withheld from an outbound transfer until its
// signatures are collected
type PendingFee struct {
	Asset  common.Address
	Amount *uint256.Int
}

// CallStatus records the result of invoking an arbitrary message. The call
// payload is kept only while the call is failed so it can be retried.
type CallStatus struct {
	MessageID ids.ID
	Success   bool
	Sender    common.Address
	Executor  common.Address
	GasLimit  uint32
	DataHash  common.Hash
	Data      []byte
	Retries   uint64
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
