// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package validators holds the validator-set oracle the bridge core consults.
package validators

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"

	"github.com/luxfi/tokenbridge"
)

var (
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrUnknownValidator   = errors.New("unknown validator")
	ErrEmptySet           = errors.New("empty validator set")
)

// Set is the read-only view of validator membership used by the core.
// Implementations must be safe for concurrent use.
type Set interface {
	IsValidator(addr common.Address) bool
	// RequiredSignatures is read on every submission; changes apply to
	// hashes that are not yet collected.
	RequiredSignatures() uint64
	// RewardAddressOf returns the fee recipient of a validator
	RewardAddressOf(addr common.Address) common.Address
	// Validators returns the members in a stable order
	Validators() []common.Address
}

// Validator is a member of a static set
type Validator struct {
	Address       common.Address
	RewardAddress common.Address
}

// Static is an owner-managed validator set
type Static struct {
	mu       sync.RWMutex
	members  set.Set[common.Address]
	order    []common.Address
	rewards  map[common.Address]common.Address
	required uint64
}

// NewStatic returns a set of validators requiring [required] signatures. A
// validator without a reward address is paid at its own address.
func NewStatic(required uint64, vdrs ...Validator) (*Static, error) {
	s := &Static{
		members: set.NewSet[common.Address](len(vdrs)),
		rewards: make(map[common.Address]common.Address, len(vdrs)),
	}
	for _, v := range vdrs {
		if err := s.add(v); err != nil {
			return nil, err
		}
	}
	if err := s.setRequired(required); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Static) IsValidator(addr common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.members.Contains(addr)
}

func (s *Static) RequiredSignatures() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.required
}

func (s *Static) RewardAddressOf(addr common.Address) common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rewards[addr]
}

func (s *Static) Validators() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Address, len(s.order))
	copy(out, s.order)
	return out
}

// AddValidator adds v to the set
func (s *Static) AddValidator(v Validator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.add(v)
}

// RemoveValidator removes addr. The set may not shrink below the number of
// required signatures.
func (s *Static) RemoveValidator(addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.members.Contains(addr) {
		return fmt.Errorf("%w: %s", ErrUnknownValidator, addr)
	}
	if uint64(s.members.Len()-1) < s.required {
		return fmt.Errorf("%w: %d validators would remain, %d signatures required",
			tokenbridge.ErrInvalidThreshold, s.members.Len()-1, s.required)
	}
	s.members.Remove(addr)
	delete(s.rewards, addr)
	for i, a := range s.order {
		if a == addr {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetRequiredSignatures changes the quorum threshold
func (s *Static) SetRequiredSignatures(required uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setRequired(required)
}

func (s *Static) add(v Validator) error {
	if v.Address == (common.Address{}) {
		return fmt.Errorf("%w: validator", tokenbridge.ErrZeroAddress)
	}
	if s.members.Contains(v.Address) {
		return fmt.Errorf("%w: %s", ErrDuplicateValidator, v.Address)
	}
	reward := v.RewardAddress
	if reward == (common.Address{}) {
		reward = v.Address
	}
	s.members.Add(v.Address)
	s.rewards[v.Address] = reward
	s.order = append(s.order, v.Address)
	return nil
}

func (s *Static) setRequired(required uint64) error {
	if s.members.Len() == 0 {
		return ErrEmptySet
	}
	if required == 0 || required > uint64(s.members.Len()) {
		return fmt.Errorf("%w: %d of %d", tokenbridge.ErrInvalidThreshold, required, s.members.Len())
	}
	s.required = required
	return nil
}

// RewardAddresses returns the reward address of every validator in set order
func RewardAddresses(s Set) []common.Address {
	vdrs := s.Validators()
	out := make([]common.Address, len(vdrs))
	for i, v := range vdrs {
		out[i] = s.RewardAddressOf(v)
	}
	return out
}
