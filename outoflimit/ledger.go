// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package outoflimit holds value that exceeded execution limits when it was
// affirmed, and releases it under owner control.
package outoflimit

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/state"
)

// Store is the slice of state the ledger reads and writes
type Store interface {
	OutOfLimit(txHash common.Hash) (*state.OutOfLimitEntry, error)
	PutOutOfLimit(txHash common.Hash, e *state.OutOfLimitEntry) error
	OutOfLimitTotal() (*uint256.Int, error)
	SetOutOfLimitTotal(v *uint256.Int) error
}

// Limits reports the outbound per-transaction limit, read at release time
type Limits interface {
	MaxPerTx(asset common.Address) (*uint256.Int, error)
}

// Ledger tracks remaining out-of-limit value per foreign transaction hash
type Ledger struct {
	store  Store
	limits Limits
}

func New(store Store, limits Limits) *Ledger {
	return &Ledger{
		store:  store,
		limits: limits,
	}
}

// RecordExcess adds value to the entry for txHash, creating it if needed
func (l *Ledger) RecordExcess(txHash common.Hash, asset, recipient common.Address, value *uint256.Int) (*state.OutOfLimitEntry, error) {
	e, err := l.store.OutOfLimit(txHash)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = &state.OutOfLimitEntry{
			Asset:     asset,
			Recipient: recipient,
			Value:     new(uint256.Int),
			Remaining: new(uint256.Int),
		}
	}
	var overflow bool
	if e.Value, overflow = new(uint256.Int).AddOverflow(e.Value, value); overflow {
		return nil, fmt.Errorf("%w: out-of-limit value of %s", tokenbridge.ErrValueOverflow, txHash)
	}
	e.Remaining = new(uint256.Int).Add(e.Remaining, value)
	if err := l.store.PutOutOfLimit(txHash, e); err != nil {
		return nil, err
	}
	return e, l.addTotal(value, false)
}

// Release takes amount off the entry for txHash and returns the updated
// entry. amount is checked against the asset's maxPerTx as configured now.
func (l *Ledger) Release(txHash common.Hash, amount *uint256.Int) (*state.OutOfLimitEntry, error) {
	e, err := l.store.OutOfLimit(txHash)
	if err != nil {
		return nil, err
	}
	if e == nil || e.Remaining.IsZero() {
		return nil, fmt.Errorf("%w: %s", tokenbridge.ErrNoSuchEntry, txHash)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: release amount", tokenbridge.ErrZeroValue)
	}
	if amount.Gt(e.Remaining) {
		return nil, fmt.Errorf("%w: %s > %s", tokenbridge.ErrAmountTooHigh, amount.Dec(), e.Remaining.Dec())
	}
	maxPerTx, err := l.limits.MaxPerTx(e.Asset)
	if err != nil {
		return nil, err
	}
	if amount.Gt(maxPerTx) {
		return nil, fmt.Errorf("%w: %s > %s", tokenbridge.ErrAboveMaxPerTx, amount.Dec(), maxPerTx.Dec())
	}

	e.Remaining = new(uint256.Int).Sub(e.Remaining, amount)
	if err := l.store.PutOutOfLimit(txHash, e); err != nil {
		return nil, err
	}
	return e, l.addTotal(amount, true)
}

// Remaining returns the unreleased value of txHash, zero when unknown
func (l *Ledger) Remaining(txHash common.Hash) (*uint256.Int, error) {
	e, err := l.store.OutOfLimit(txHash)
	if err != nil || e == nil {
		return new(uint256.Int), err
	}
	return e.Remaining, nil
}

func (l *Ledger) addTotal(v *uint256.Int, subtract bool) error {
	total, err := l.store.OutOfLimitTotal()
	if err != nil {
		return err
	}
	if subtract {
		total.Sub(total, v)
	} else {
		total.Add(total, v)
	}
	return l.store.SetOutOfLimitTotal(total)
}
