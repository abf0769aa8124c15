// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package limits enforces per-asset daily, per-transaction and minimum
// transaction limits bucketed by UTC day.
package limits

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/state"
)

const (
	SecondsPerDay = 86400

	// MaxDecimalShift bounds |shift|. 10^77 is the largest power of ten
	// representable in 256 bits, so a shift of 77 would overflow every value
	// above 1.
	MaxDecimalShift = 76
)

// Direction selects which set of limits a value is checked against
type Direction uint8

const (
	// Outgoing values leave this side and are checked against the daily,
	// max per tx and min per tx limits. Breaches reject the request.
	Outgoing Direction = iota
	// Execution values arrive from the other side and are checked against
	// the execution limits. Breaches are reported, not rejected.
	Execution
)

// Clock is the host's wall-clock source. *mockable.Clock satisfies it.
type Clock interface {
	Time() time.Time
}

// Day returns the UTC day bucket of t
func Day(t time.Time) uint64 {
	return uint64(t.Unix()) / SecondsPerDay
}

// Store is the slice of state the tracker reads and writes
type Store interface {
	Limits(asset common.Address) (*state.Limits, error)
	PutLimits(asset common.Address, l *state.Limits) error
	TotalSpent(asset common.Address, day uint64) (*uint256.Int, error)
	SetTotalSpent(asset common.Address, day uint64, v *uint256.Int) error
	TotalExecuted(asset common.Address, day uint64) (*uint256.Int, error)
	SetTotalExecuted(asset common.Address, day uint64, v *uint256.Int) error
}

// Tracker applies limits through a store
type Tracker struct {
	store        Store
	clock        Clock
	decimalShift int
}

// NewTracker returns a tracker. decimalShift is the power of ten that scales
// foreign units to home units.
func NewTracker(store Store, clock Clock, decimalShift int) (*Tracker, error) {
	if err := ValidateDecimalShift(decimalShift); err != nil {
		return nil, err
	}
	return &Tracker{
		store:        store,
		clock:        clock,
		decimalShift: decimalShift,
	}, nil
}

// ValidateDecimalShift checks |shift| <= MaxDecimalShift
func ValidateDecimalShift(shift int) error {
	if shift < -MaxDecimalShift || shift > MaxDecimalShift {
		return fmt.Errorf("%w: %d", tokenbridge.ErrInvalidDecimalShift, shift)
	}
	return nil
}

// Today returns the current day bucket
func (t *Tracker) Today() uint64 {
	return Day(t.clock.Time())
}

// CheckAndReserve checks value against the limits of direction and books it
// into today's bucket.
//
// Outgoing breaches fail with a limit error and book nothing. For Execution
// the returned bool is false when value exceeds executionMaxPerTx or today's
// remaining execution allowance; the value is then not booked and the caller
// routes it to the out-of-limit ledger.
func (t *Tracker) CheckAndReserve(asset common.Address, value *uint256.Int, direction Direction) (bool, error) {
	l, err := t.store.Limits(asset)
	if err != nil {
		return false, err
	}
	day := t.Today()

	if direction == Execution {
		executed, err := t.store.TotalExecuted(asset, day)
		if err != nil {
			return false, err
		}
		if value.Gt(l.ExecutionMaxPerTx) {
			return false, nil
		}
		total, overflow := new(uint256.Int).AddOverflow(executed, value)
		if overflow || total.Gt(l.ExecutionDailyLimit) {
			return false, nil
		}
		return true, t.store.SetTotalExecuted(asset, day, total)
	}

	if l.DailyLimit.IsZero() {
		return false, fmt.Errorf("%w: %s", tokenbridge.ErrAssetDisabled, asset)
	}
	if value.Lt(l.MinPerTx) {
		return false, fmt.Errorf("%w: %s < %s", tokenbridge.ErrBelowMinPerTx, value.Dec(), l.MinPerTx.Dec())
	}
	if value.Gt(l.MaxPerTx) {
		return false, fmt.Errorf("%w: %s > %s", tokenbridge.ErrAboveMaxPerTx, value.Dec(), l.MaxPerTx.Dec())
	}
	spent, err := t.store.TotalSpent(asset, day)
	if err != nil {
		return false, err
	}
	total, overflow := new(uint256.Int).AddOverflow(spent, value)
	if overflow || total.Gt(l.DailyLimit) {
		return false, fmt.Errorf("%w: %s spent today, daily limit %s",
			tokenbridge.ErrDailyLimitExceeded, spent.Dec(), l.DailyLimit.Dec())
	}
	return true, t.store.SetTotalSpent(asset, day, total)
}

// WithinLimit reports whether an outgoing value would pass CheckAndReserve
// without booking it
func (t *Tracker) WithinLimit(asset common.Address, value *uint256.Int) (bool, error) {
	l, err := t.store.Limits(asset)
	if err != nil {
		return false, err
	}
	if l.DailyLimit.IsZero() || value.Lt(l.MinPerTx) || value.Gt(l.MaxPerTx) {
		return false, nil
	}
	spent, err := t.store.TotalSpent(asset, t.Today())
	if err != nil {
		return false, err
	}
	total, overflow := new(uint256.Int).AddOverflow(spent, value)
	return !overflow && !total.Gt(l.DailyLimit), nil
}

// MaxPerTx returns the current outbound per-transaction limit of asset
func (t *Tracker) MaxPerTx(asset common.Address) (*uint256.Int, error) {
	l, err := t.store.Limits(asset)
	if err != nil {
		return nil, err
	}
	return l.MaxPerTx, nil
}

// Shift scales a foreign-unit value to home units. It is applied exactly once,
// where value crosses from foreign to home units.
func (t *Tracker) Shift(value *uint256.Int) (*uint256.Int, error) {
	return scale(value, t.decimalShift)
}

// Unshift scales a home-unit value to foreign units
func (t *Tracker) Unshift(value *uint256.Int) (*uint256.Int, error) {
	return scale(value, -t.decimalShift)
}

func scale(value *uint256.Int, shift int) (*uint256.Int, error) {
	switch {
	case shift == 0:
		return new(uint256.Int).Set(value), nil
	case shift > 0:
		factor := pow10(shift)
		out, overflow := new(uint256.Int).MulOverflow(value, factor)
		if overflow {
			return nil, fmt.Errorf("%w: %s * 10^%d", tokenbridge.ErrValueOverflow, value.Dec(), shift)
		}
		return out, nil
	default:
		return new(uint256.Int).Div(value, pow10(-shift)), nil
	}
}

func pow10(n int) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}
