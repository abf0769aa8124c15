// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package signatures counts validator signatures per message or affirmation
// hash and detects quorum.
package signatures

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/state"
	"github.com/luxfi/tokenbridge/validators"
)

// Store is the slice of state the collector reads and writes
type Store interface {
	Signatures(ns state.Namespace, hash common.Hash) (*state.SignatureRecord, error)
	PutSignatures(ns state.Namespace, hash common.Hash, r *state.SignatureRecord) error
}

// Recoverer returns the address that produced sig over message
type Recoverer interface {
	Recover(message, sig []byte) (common.Address, error)
}

// Status is the state of a hash: Pending with a count of signatures, or
// Collected. Collected is terminal.
type Status struct {
	Collected bool
	Count     uint64
}

func (s Status) String() string {
	if s.Collected {
		return fmt.Sprintf("collected(%d)", s.Count)
	}
	return fmt.Sprintf("pending(%d)", s.Count)
}

// Outcome is the result of an accepted submission
type Outcome struct {
	Hash   common.Hash
	Status Status
	// Completed is set on the one submission that reached quorum
	Completed bool
	// Required is the threshold in force for this submission
	Required uint64
}

// Collector records submissions through a store
type Collector struct {
	store      Store
	validators validators.Set
	recoverer  Recoverer
}

// New returns a collector
func New(store Store, vdrs validators.Set, recoverer Recoverer) *Collector {
	return &Collector{
		store:      store,
		validators: vdrs,
		recoverer:  recoverer,
	}
}

// SubmitSignature records signer's signature over message. The message body is
// stored with the first signature; every signature body is stored. The
// threshold is read at the time of the call.
func (c *Collector) SubmitSignature(signer common.Address, sig, message []byte) (*Outcome, error) {
	recovered, err := c.recoverer.Recover(message, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tokenbridge.ErrInvalidSignature, err)
	}
	if recovered != signer {
		return nil, fmt.Errorf("%w: recovered %s, expected %s", tokenbridge.ErrInvalidSignature, recovered, signer)
	}
	if !c.validators.IsValidator(signer) {
		return nil, fmt.Errorf("%w: %s", tokenbridge.ErrNotAValidator, signer)
	}

	hash := tokenbridge.Keccak256(message)
	r, err := c.store.Signatures(state.MessageSignatures, hash)
	if err != nil {
		return nil, err
	}
	if r.Collected {
		return nil, fmt.Errorf("%w: message %s", tokenbridge.ErrAlreadyProcessed, hash)
	}
	if r.HasSigned(signer) {
		return nil, fmt.Errorf("%w: %s signed message %s", tokenbridge.ErrAlreadySigned, signer, hash)
	}

	if r.Count() == 0 {
		r.Message = common.CopyBytes(message)
	}
	r.Signatures = append(r.Signatures, common.CopyBytes(sig))
	return c.record(state.MessageSignatures, hash, r, signer)
}

// Affirm records validator's affirmation of hash. A repeat by the same
// validator is reported before a collected hash.
func (c *Collector) Affirm(validator common.Address, hash common.Hash) (*Outcome, error) {
	if !c.validators.IsValidator(validator) {
		return nil, fmt.Errorf("%w: %s", tokenbridge.ErrNotAValidator, validator)
	}
	r, err := c.store.Signatures(state.Affirmations, hash)
	if err != nil {
		return nil, err
	}
	if r.HasSigned(validator) {
		return nil, fmt.Errorf("%w: %s affirmed %s", tokenbridge.ErrAlreadySigned, validator, hash)
	}
	if r.Collected {
		return nil, fmt.Errorf("%w: affirmation %s", tokenbridge.ErrAlreadyProcessed, hash)
	}
	return c.record(state.Affirmations, hash, r, validator)
}

func (c *Collector) record(ns state.Namespace, hash common.Hash, r *state.SignatureRecord, signer common.Address) (*Outcome, error) {
	r.Signers = append(r.Signers, signer)
	required := c.validators.RequiredSignatures()

	out := &Outcome{
		Hash:     hash,
		Required: required,
	}
	if r.Count() >= required {
		r.Collected = true
		r.Responsible = signer
		out.Completed = true
	}
	if err := c.store.PutSignatures(ns, hash, r); err != nil {
		return nil, err
	}
	out.Status = Status{Collected: r.Collected, Count: r.Count()}
	return out, nil
}

// Status returns the state of hash in namespace ns
func (c *Collector) Status(ns state.Namespace, hash common.Hash) (Status, error) {
	r, err := c.store.Signatures(ns, hash)
	if err != nil {
		return Status{}, err
	}
	return Status{Collected: r.Collected, Count: r.Count()}, nil
}
