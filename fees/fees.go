// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package fees computes bridge fees and splits them across validator reward
// addresses.
package fees

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/state"
)

// Scale is the fee rate meaning 100%
var Scale = uint256.NewInt(1_000_000_000_000_000_000)

// Direction is the leg of the bridge a fee is charged on
type Direction uint8

const (
	// HomeFee is charged on affirmations executed on the home side
	HomeFee Direction = iota
	// ForeignFee is charged on transfers from home to foreign, withheld when
	// their signatures are collected
	ForeignFee
)

// Kind selects a fee strategy
type Kind uint8

const (
	NoFee Kind = iota
	OneDirection
	BothDirections
)

var (
	oneDirectionTag   = tokenbridge.Keccak4("manages-one-direction")
	bothDirectionsTag = tokenbridge.Keccak4("manages-both-directions")
)

func (k Kind) String() string {
	switch k {
	case NoFee:
		return "no-fee"
	case OneDirection:
		return "one-direction"
	case BothDirections:
		return "both-directions"
	default:
		return "unknown"
	}
}

// ParseKind parses the String form of a kind
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{NoFee, OneDirection, BothDirections} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown fee mode %q", tokenbridge.ErrValidation, s)
}

// Manager is a fee strategy
type Manager interface {
	// Kind identifies the strategy
	Kind() Kind
	// Mode returns the strategy's four byte tag, zero for NoFee
	Mode() [4]byte
	// Fee returns the fee on value for direction
	Fee(value *uint256.Int, direction Direction) *uint256.Int
}

type noFee struct{}

func (noFee) Kind() Kind                               { return NoFee }
func (noFee) Mode() [4]byte                            { return [4]byte{} }
func (noFee) Fee(*uint256.Int, Direction) *uint256.Int { return new(uint256.Int) }

type oneDirection struct {
	homeFee *uint256.Int
}

func (oneDirection) Kind() Kind    { return OneDirection }
func (oneDirection) Mode() [4]byte { return oneDirectionTag }

func (m oneDirection) Fee(value *uint256.Int, direction Direction) *uint256.Int {
	if direction != HomeFee {
		return new(uint256.Int)
	}
	_, fee := ComputeFee(value, m.homeFee)
	return fee
}

type bothDirections struct {
	homeFee    *uint256.Int
	foreignFee *uint256.Int
}

func (bothDirections) Kind() Kind    { return BothDirections }
func (bothDirections) Mode() [4]byte { return bothDirectionsTag }

func (m bothDirections) Fee(value *uint256.Int, direction Direction) *uint256.Int {
	rate := m.homeFee
	if direction == ForeignFee {
		rate = m.foreignFee
	}
	_, fee := ComputeFee(value, rate)
	return fee
}

// NewManager returns the strategy described by cfg
func NewManager(cfg *state.FeeConfig) (Manager, error) {
	if err := ValidateFee(cfg.HomeFee); err != nil {
		return nil, err
	}
	if err := ValidateFee(cfg.ForeignFee); err != nil {
		return nil, err
	}
	switch Kind(cfg.Kind) {
	case NoFee:
		return noFee{}, nil
	case OneDirection:
		return oneDirection{homeFee: orZero(cfg.HomeFee)}, nil
	case BothDirections:
		return bothDirections{homeFee: orZero(cfg.HomeFee), foreignFee: orZero(cfg.ForeignFee)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown fee mode %d", tokenbridge.ErrValidation, cfg.Kind)
	}
}

// ValidateFee checks 0 <= fee < Scale
func ValidateFee(fee *uint256.Int) error {
	if fee != nil && !fee.Lt(Scale) {
		return fmt.Errorf("%w: %s >= %s", tokenbridge.ErrFeeTooHigh, fee.Dec(), Scale.Dec())
	}
	return nil
}

// ComputeFee returns floor(value * fee / Scale) and value minus that fee. The
// product is taken at 512 bits so it cannot overflow.
func ComputeFee(value, fee *uint256.Int) (net, feeAmount *uint256.Int) {
	feeAmount, _ = new(uint256.Int).MulDivOverflow(value, orZero(fee), Scale)
	net = new(uint256.Int).Sub(value, feeAmount)
	return net, feeAmount
}

// Share is the part of a fee paid to one reward address
type Share struct {
	Recipient common.Address
	Amount    *uint256.Int
}

// Distribute splits fee evenly across rewardAddresses. The integer division
// remainder goes to responsible, the reward address of the validator whose
// submission completed quorum, so the shares always sum to fee.
func Distribute(fee *uint256.Int, rewardAddresses []common.Address, responsible common.Address) ([]Share, error) {
	if len(rewardAddresses) == 0 {
		return nil, fmt.Errorf("%w: no reward addresses", tokenbridge.ErrValidation)
	}

	n := uint256.NewInt(uint64(len(rewardAddresses)))
	each := new(uint256.Int).Div(fee, n)
	remainder := new(uint256.Int).Mod(fee, n)

	shares := make([]Share, 0, len(rewardAddresses)+1)
	paidResponsible := false
	for _, addr := range rewardAddresses {
		amount := new(uint256.Int).Set(each)
		if addr == responsible && !paidResponsible {
			amount.Add(amount, remainder)
			paidResponsible = true
		}
		shares = append(shares, Share{Recipient: addr, Amount: amount})
	}
	if !paidResponsible && !remainder.IsZero() {
		shares = append(shares, Share{Recipient: responsible, Amount: remainder})
	}
	return shares, nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
