// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/limits"
	"github.com/luxfi/tokenbridge/signatures"
	"github.com/luxfi/tokenbridge/state"
)

// view runs fn against a read-only view of committed state
func (c *Core) view(fn func(t *txn) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, err := c.newTxn(c.db)
	if err != nil {
		return err
	}
	return fn(t)
}

// SignatureStatus returns the collection state of an outbound message hash
func (c *Core) SignatureStatus(hash common.Hash) (signatures.Status, error) {
	return c.status(state.MessageSignatures, hash)
}

// AffirmationStatus returns the collection state of an affirmation hash
func (c *Core) AffirmationStatus(hash common.Hash) (signatures.Status, error) {
	return c.status(state.Affirmations, hash)
}

func (c *Core) status(ns state.Namespace, hash common.Hash) (signatures.Status, error) {
	var s signatures.Status
	err := c.view(func(t *txn) error {
		var err error
		s, err = t.collector.Status(ns, hash)
		return err
	})
	return s, err
}

// Signature returns the index-th signature collected over message hash
func (c *Core) Signature(hash common.Hash, index int) ([]byte, error) {
	r, err := c.signatureRecord(hash)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(r.Signatures) {
		return nil, fmt.Errorf("%w: signature %d of %d", tokenbridge.ErrValidation, index, len(r.Signatures))
	}
	return common.CopyBytes(r.Signatures[index]), nil
}

// Signatures returns every signature collected over message hash, in
// submission order
func (c *Core) Signatures(hash common.Hash) ([][]byte, error) {
	r, err := c.signatureRecord(hash)
	if err != nil {
		return nil, err
	}
	return r.Signatures, nil
}

// SignedMessage returns the message body stored with the first signature
// over hash
func (c *Core) SignedMessage(hash common.Hash) ([]byte, error) {
	r, err := c.signatureRecord(hash)
	if err != nil {
		return nil, err
	}
	if len(r.Message) == 0 {
		return nil, fmt.Errorf("%w: no signatures for %s", tokenbridge.ErrMessageNotFound, hash)
	}
	return r.Message, nil
}

// Signers returns the validators that signed hash in namespace ns
func (c *Core) Signers(ns state.Namespace, hash common.Hash) ([]common.Address, error) {
	var r *state.SignatureRecord
	err := c.view(func(t *txn) error {
		var err error
		r, err = t.store.Signatures(ns, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Signers, nil
}

func (c *Core) signatureRecord(hash common.Hash) (*state.SignatureRecord, error) {
	var r *state.SignatureRecord
	err := c.view(func(t *txn) error {
		var err error
		r, err = t.store.Signatures(state.MessageSignatures, hash)
		return err
	})
	return r, err
}

// ExecutionStatus returns the outcome of a collected affirmation or relayed
// message, nil if it has not executed
func (c *Core) ExecutionStatus(hash common.Hash) (*state.ExecutionStatus, error) {
	var s *state.ExecutionStatus
	err := c.view(func(t *txn) error {
		var err error
		s, err = t.store.ExecutionStatus(hash)
		return err
	})
	return s, err
}

// CallStatus returns the recorded call of an arbitrary message, nil if the
// message was never executed here
func (c *Core) CallStatus(messageID ids.ID) (*state.CallStatus, error) {
	var s *state.CallStatus
	err := c.view(func(t *txn) error {
		var err error
		s, err = t.store.CallStatus(messageID)
		return err
	})
	return s, err
}

// Relayed reports whether a message id or token transaction hash was
// executed through ExecuteSignatures
func (c *Core) Relayed(key common.Hash) (bool, error) {
	var relayed bool
	err := c.view(func(t *txn) error {
		var err error
		relayed, err = t.store.IsRelayed(key)
		return err
	})
	return relayed, err
}

// Message returns an outbound arbitrary message by id
func (c *Core) Message(id ids.ID) (*tokenbridge.Message, error) {
	var b []byte
	err := c.view(func(t *txn) error {
		var err error
		b, err = t.store.Message(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: %s", tokenbridge.ErrMessageNotFound, id)
	}
	return tokenbridge.DecodeMessage(b)
}

// LimitStatus is the limit configuration of an asset and today's usage
type LimitStatus struct {
	Limits        *state.Limits
	Day           uint64
	TotalSpent    *uint256.Int
	TotalExecuted *uint256.Int
}

// Limits returns the limits of asset and what was used of them today
func (c *Core) Limits(asset common.Address) (*LimitStatus, error) {
	s := &LimitStatus{}
	err := c.view(func(t *txn) error {
		var err error
		if s.Limits, err = t.store.Limits(asset); err != nil {
			return err
		}
		s.Day = t.limits.Today()
		if s.TotalSpent, err = t.store.TotalSpent(asset, s.Day); err != nil {
			return err
		}
		s.TotalExecuted, err = t.store.TotalExecuted(asset, s.Day)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WithinLimit reports whether an outgoing transfer of value would pass the
// limits now
func (c *Core) WithinLimit(asset common.Address, value *uint256.Int) (bool, error) {
	var ok bool
	err := c.view(func(t *txn) error {
		var err error
		ok, err = t.limits.WithinLimit(asset, value)
		return err
	})
	return ok, err
}

// OutOfLimit returns the entry held for txHash, nil if there is none
func (c *Core) OutOfLimit(txHash common.Hash) (*state.OutOfLimitEntry, error) {
	var e *state.OutOfLimitEntry
	err := c.view(func(t *txn) error {
		var err error
		e, err = t.store.OutOfLimit(txHash)
		return err
	})
	return e, err
}

// OutOfLimitTotal returns the value held across all entries
func (c *Core) OutOfLimitTotal() (*uint256.Int, error) {
	var total *uint256.Int
	err := c.view(func(t *txn) error {
		var err error
		total, err = t.store.OutOfLimitTotal()
		return err
	})
	return total, err
}

// FeeStatus is the active fee strategy and its rates
type FeeStatus struct {
	Kind       fees.Kind
	Mode       [4]byte
	HomeFee    *uint256.Int
	ForeignFee *uint256.Int
}

func (c *Core) Fees() (*FeeStatus, error) {
	s := &FeeStatus{}
	err := c.view(func(t *txn) error {
		cfg, err := t.store.FeeConfig()
		if err != nil {
			return err
		}
		manager, err := fees.NewManager(cfg)
		if err != nil {
			return err
		}
		s.Kind = manager.Kind()
		s.Mode = manager.Mode()
		s.HomeFee = cfg.HomeFee
		s.ForeignFee = cfg.ForeignFee
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Owner returns the governance identity
func (c *Core) Owner() (common.Address, error) {
	var owner common.Address
	err := c.view(func(t *txn) error {
		var err error
		owner, err = t.store.Owner()
		return err
	})
	return owner, err
}

// MaxGasPerTx returns the gas ceiling for outbound arbitrary messages
func (c *Core) MaxGasPerTx() (uint32, error) {
	var gas uint32
	err := c.view(func(t *txn) error {
		var err error
		gas, _, err = t.store.MaxGasPerTx()
		return err
	})
	return gas, err
}

// Nonce returns the next outbound nonce
func (c *Core) Nonce() (uint64, error) {
	var nonce uint64
	err := c.view(func(t *txn) error {
		var err error
		nonce, err = t.store.Nonce()
		return err
	})
	return nonce, err
}

// Events returns up to limit events after sequence number after
func (c *Core) Events(after uint64, limit int) ([]*tokenbridge.Event, error) {
	var events []*tokenbridge.Event
	err := c.view(func(t *txn) error {
		var err error
		events, err = t.store.Events(after, limit)
		return err
	})
	return events, err
}

// Today returns the current day bucket
func (c *Core) Today() uint64 {
	return limits.Day(c.clock.Time())
}
