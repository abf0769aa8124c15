// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package limits

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/state"
)

// Field names one limit parameter
type Field uint8

const (
	DailyLimit Field = iota
	MaxPerTx
	MinPerTx
	ExecutionDailyLimit
	ExecutionMaxPerTx
)

func (f Field) String() string {
	switch f {
	case DailyLimit:
		return "dailyLimit"
	case MaxPerTx:
		return "maxPerTx"
	case MinPerTx:
		return "minPerTx"
	case ExecutionDailyLimit:
		return "executionDailyLimit"
	case ExecutionMaxPerTx:
		return "executionMaxPerTx"
	default:
		return "unknown"
	}
}

// Validate checks minPerTx <= maxPerTx <= dailyLimit and
// executionMaxPerTx <= executionDailyLimit. A zero daily limit disables its
// side and is exempt from ordering.
func Validate(l *state.Limits) error {
	l = l.Copy()
	if !l.DailyLimit.IsZero() {
		if l.MinPerTx.Gt(l.MaxPerTx) {
			return fmt.Errorf("%w: minPerTx %s > maxPerTx %s", tokenbridge.ErrInvalidLimits, l.MinPerTx.Dec(), l.MaxPerTx.Dec())
		}
		if l.MaxPerTx.Gt(l.DailyLimit) {
			return fmt.Errorf("%w: maxPerTx %s > dailyLimit %s", tokenbridge.ErrInvalidLimits, l.MaxPerTx.Dec(), l.DailyLimit.Dec())
		}
	}
	if !l.ExecutionDailyLimit.IsZero() && l.ExecutionMaxPerTx.Gt(l.ExecutionDailyLimit) {
		return fmt.Errorf("%w: executionMaxPerTx %s > executionDailyLimit %s",
			tokenbridge.ErrInvalidLimits, l.ExecutionMaxPerTx.Dec(), l.ExecutionDailyLimit.Dec())
	}
	return nil
}

// SetLimits replaces the whole configuration of asset
func (t *Tracker) SetLimits(asset common.Address, l *state.Limits) error {
	if err := Validate(l); err != nil {
		return err
	}
	return t.store.PutLimits(asset, l)
}

// Set changes one limit of asset, re-checking the ordering of the result
func (t *Tracker) Set(asset common.Address, field Field, value *uint256.Int) (*state.Limits, error) {
	l, err := t.store.Limits(asset)
	if err != nil {
		return nil, err
	}
	v := new(uint256.Int).Set(value)
	switch field {
	case DailyLimit:
		l.DailyLimit = v
	case MaxPerTx:
		l.MaxPerTx = v
	case MinPerTx:
		l.MinPerTx = v
	case ExecutionDailyLimit:
		l.ExecutionDailyLimit = v
	case ExecutionMaxPerTx:
		l.ExecutionMaxPerTx = v
	default:
		return nil, fmt.Errorf("%w: unknown limit field %d", tokenbridge.ErrInvalidLimits, field)
	}
	if err := t.SetLimits(asset, l); err != nil {
		return nil, err
	}
	return l, nil
}
