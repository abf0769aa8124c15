// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/limits"
	"github.com/luxfi/tokenbridge/signatures"
	"github.com/luxfi/tokenbridge/state"
	"github.com/luxfi/tokenbridge/validators"
)

// SubmitSignature records a home validator's signature over an outbound
// message. The submission that reaches quorum emits CollectedSignatures,
// naming its signer as responsible for relaying, and pays out any foreign fee
// withheld from the transfer.
func (c *Core) SubmitSignature(signer common.Address, sig, message []byte) (*signatures.Outcome, error) {
	if err := c.onlySide(tokenbridge.Home, "submitSignature"); err != nil {
		return nil, err
	}

	var out *signatures.Outcome
	err := c.update("submit_signature", func(t *txn) error {
		e, err := t.checkOutbound(message)
		if err != nil {
			return err
		}
		out, err = t.collector.SubmitSignature(signer, sig, message)
		if err != nil {
			return err
		}
		e.Type = tokenbridge.SignedForUserRequest
		e.Hash = out.Hash
		e.Responsible = signer
		e.NumSignatures = out.Status.Count
		if err := t.emit(e); err != nil {
			return err
		}
		if !out.Completed {
			return nil
		}

		if err := t.emit(&tokenbridge.Event{
			Type:          tokenbridge.CollectedSignatures,
			MessageID:     e.MessageID,
			Hash:          out.Hash,
			Responsible:   signer,
			NumSignatures: out.Status.Count,
			Data:          common.CopyBytes(message),
		}); err != nil {
			return err
		}
		return t.payPendingFee(out.Hash, signer)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkOutbound verifies that message is one this core emitted and returns an
// event template describing it
func (t *txn) checkOutbound(message []byte) (*tokenbridge.Event, error) {
	c := t.core
	if !c.mode.IsToken() {
		msg, err := tokenbridge.DecodeMessage(message)
		if err != nil {
			return nil, err
		}
		stored, err := t.store.Message(msg.MessageID)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(stored, message) {
			return nil, fmt.Errorf("%w: message %s differs from the one emitted",
				tokenbridge.ErrMessageNotFound, common.Hash(msg.MessageID).Hex())
		}
		return &tokenbridge.Event{MessageID: msg.MessageID, Sender: msg.Sender}, nil
	}

	msg, err := tokenbridge.DecodeTokenMessage(message, c.multiToken())
	if err != nil {
		return nil, err
	}
	if msg.Bridge != c.remoteAddress {
		return nil, fmt.Errorf("%w: message for bridge %s", tokenbridge.ErrMalformedMessage, msg.Bridge)
	}
	return &tokenbridge.Event{
		TransactionHash: msg.TransactionHash,
		Asset:           msg.Asset,
		Recipient:       msg.Recipient,
		Value:           msg.Value,
	}, nil
}

// payPendingFee distributes the foreign fee withheld for hash, if any
func (t *txn) payPendingFee(hash common.Hash, responsible common.Address) error {
	pending, err := t.store.PendingFee(hash)
	if err != nil || pending == nil {
		return err
	}
	if err := t.store.DeletePendingFee(hash); err != nil {
		return err
	}
	return t.distributeFee(hash, pending.Asset, pending.Amount, responsible)
}

// distributeFee pays fee across the reward addresses of the current validator
// set. Payment failures are recorded, never returned.
func (t *txn) distributeFee(hash common.Hash, asset common.Address, fee *uint256.Int, responsible common.Address) error {
	c := t.core
	shares, err := fees.Distribute(fee, validators.RewardAddresses(c.validators), c.validators.RewardAddressOf(responsible))
	if err != nil {
		return err
	}
	for _, share := range shares {
		if share.Amount.IsZero() {
			continue
		}
		if !c.credit(asset, share.Recipient, share.Amount) {
			if err := t.emit(&tokenbridge.Event{
				Type:      tokenbridge.DownstreamCallFailed,
				Hash:      hash,
				Asset:     asset,
				Recipient: share.Recipient,
				Value:     share.Amount,
			}); err != nil {
				return err
			}
			continue
		}
		if err := t.emit(&tokenbridge.Event{
			Type:        tokenbridge.FeeDistributed,
			Hash:        hash,
			Asset:       asset,
			Recipient:   share.Recipient,
			Responsible: responsible,
			Value:       share.Amount,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteSignatures executes a message collected on the home side, given the
// signatures of at least the required number of distinct validators. Each
// message executes at most once.
func (c *Core) ExecuteSignatures(ctx context.Context, message []byte, sigs [][]byte) (*tokenbridge.Event, error) {
	if err := c.onlySide(tokenbridge.Foreign, "executeSignatures"); err != nil {
		return nil, err
	}

	var event *tokenbridge.Event
	err := c.update("execute_signatures", func(t *txn) error {
		if err := c.verifySignatures(message, sigs); err != nil {
			return err
		}
		var err error
		if c.mode.IsToken() {
			event, err = t.executeTokenMessage(message)
		} else {
			event, err = t.executeCallMessage(ctx, message)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// verifySignatures checks that sigs come from at least RequiredSignatures
// distinct validators
func (c *Core) verifySignatures(message []byte, sigs [][]byte) error {
	required := c.validators.RequiredSignatures()
	if uint64(len(sigs)) < required {
		return fmt.Errorf("%w: %d of %d", tokenbridge.ErrInsufficientSignature, len(sigs), required)
	}
	seen := set.NewSet[common.Address](len(sigs))
	for i, sig := range sigs {
		addr, err := c.verifier.Recover(message, sig)
		if err != nil {
			return fmt.Errorf("%w: signature %d: %w", tokenbridge.ErrInvalidSignature, i, err)
		}
		if !c.validators.IsValidator(addr) {
			return fmt.Errorf("%w: signature %d by %s", tokenbridge.ErrNotAValidator, i, addr)
		}
		if seen.Contains(addr) {
			return fmt.Errorf("%w: %s signed twice", tokenbridge.ErrDuplicateSignature, addr)
		}
		seen.Add(addr)
	}
	return nil
}

func (t *txn) executeTokenMessage(message []byte) (*tokenbridge.Event, error) {
	c := t.core
	msg, err := tokenbridge.DecodeTokenMessage(message, c.multiToken())
	if err != nil {
		return nil, err
	}
	if msg.Bridge != c.address {
		return nil, fmt.Errorf("%w: message for bridge %s", tokenbridge.ErrMalformedMessage, msg.Bridge)
	}
	if err := t.markRelayed(msg.TransactionHash); err != nil {
		return nil, err
	}

	asset := c.assetOf(msg.Asset)
	value, err := t.limits.Unshift(msg.Value)
	if err != nil {
		return nil, err
	}
	e := &tokenbridge.Event{
		Type:            tokenbridge.RelayedMessage,
		Hash:            tokenbridge.Keccak256(message),
		TransactionHash: msg.TransactionHash,
		Asset:           asset,
		Recipient:       msg.Recipient,
		Value:           value,
	}
	status, err := t.executeTransfer(e, new(uint256.Int))
	if err != nil {
		return nil, err
	}
	e.Status = status.Success
	if err := t.store.PutExecutionStatus(e.Hash, status); err != nil {
		return nil, err
	}
	return e, t.emit(e)
}

func (t *txn) executeCallMessage(ctx context.Context, message []byte) (*tokenbridge.Event, error) {
	c := t.core
	msg, err := tokenbridge.ParseMessage(message, c.chainID)
	if err != nil {
		return nil, err
	}
	if err := t.markRelayed(common.Hash(msg.MessageID)); err != nil {
		return nil, err
	}
	ok, err := t.invoke(ctx, msg)
	if err != nil {
		return nil, err
	}
	e := &tokenbridge.Event{
		Type:      tokenbridge.RelayedMessage,
		MessageID: msg.MessageID,
		Hash:      tokenbridge.Keccak256(message),
		Sender:    msg.Sender,
		Recipient: msg.Executor,
		Status:    ok,
	}
	return e, t.emit(e)
}

func (t *txn) markRelayed(key common.Hash) error {
	relayed, err := t.store.IsRelayed(key)
	if err != nil {
		return err
	}
	if relayed {
		return fmt.Errorf("%w: %s", tokenbridge.ErrAlreadyProcessed, key)
	}
	return t.store.MarkRelayed(key)
}

// executeTransfer books e.Value against the execution limits and credits it
// to e.Recipient less fee. Value above the limits is routed to the
// out-of-limit ledger instead and nothing is credited.
func (t *txn) executeTransfer(e *tokenbridge.Event, fee *uint256.Int) (*state.ExecutionStatus, error) {
	ok, err := t.limits.CheckAndReserve(e.Asset, e.Value, limits.Execution)
	if err != nil {
		return nil, err
	}
	if !ok {
		entry, err := t.ledger.RecordExcess(e.TransactionHash, e.Asset, e.Recipient, e.Value)
		if err != nil {
			return nil, err
		}
		return &state.ExecutionStatus{Deferred: true}, t.emit(&tokenbridge.Event{
			Type:            tokenbridge.AmountLimitExceeded,
			Hash:            e.Hash,
			TransactionHash: e.TransactionHash,
			Asset:           e.Asset,
			Recipient:       e.Recipient,
			Value:           e.Value,
			Remaining:       entry.Remaining,
		})
	}
	net := new(uint256.Int).Sub(e.Value, fee)
	if !t.core.credit(e.Asset, e.Recipient, net) {
		return &state.ExecutionStatus{}, t.emit(&tokenbridge.Event{
			Type:            tokenbridge.DownstreamCallFailed,
			Hash:            e.Hash,
			TransactionHash: e.TransactionHash,
			Asset:           e.Asset,
			Recipient:       e.Recipient,
			Value:           net,
		})
	}
	return &state.ExecutionStatus{Success: true}, nil
}
