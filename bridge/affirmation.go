// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/signatures"
	"github.com/luxfi/tokenbridge/state"
)

// ExecuteAffirmation records validator's attestation of a foreign transfer.
// When quorum is reached the value is shifted to home units, checked against
// the execution limits and credited to the recipient less the home fee. Value
// above the limits is held in the out-of-limit ledger instead.
//
// Affirmations are keyed by (recipient, value, transaction hash): the same
// transaction hash affirmed with a different value is a separate transfer.
func (c *Core) ExecuteAffirmation(validator common.Address, a *tokenbridge.Affirmation) (*signatures.Outcome, error) {
	if err := c.onlySide(tokenbridge.Home, "executeAffirmation"); err != nil {
		return nil, err
	}
	if err := c.onlyTokenMode("executeAffirmation"); err != nil {
		return nil, err
	}
	if a.Value == nil || a.Value.IsZero() {
		return nil, fmt.Errorf("%w: affirmed value", tokenbridge.ErrZeroValue)
	}
	if a.Recipient == (common.Address{}) {
		return nil, fmt.Errorf("%w: recipient", tokenbridge.ErrZeroAddress)
	}

	var out *signatures.Outcome
	err := c.update("execute_affirmation", func(t *txn) error {
		// a value that cannot be expressed in home units would block
		// the hash at quorum
		if _, err := t.limits.Shift(a.Value); err != nil {
			return err
		}
		hash := a.Hash(c.multiToken())
		var err error
		out, err = t.collector.Affirm(validator, hash)
		if err != nil {
			return err
		}
		if err := t.emit(&tokenbridge.Event{
			Type:            tokenbridge.SignedForAffirmation,
			Hash:            hash,
			TransactionHash: a.TransactionHash,
			Asset:           a.Asset,
			Recipient:       a.Recipient,
			Responsible:     validator,
			Value:           new(uint256.Int).Set(a.Value),
			NumSignatures:   out.Status.Count,
		}); err != nil {
			return err
		}
		if !out.Completed {
			return nil
		}
		return t.completeAffirmation(hash, a, validator)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *txn) completeAffirmation(hash common.Hash, a *tokenbridge.Affirmation, responsible common.Address) error {
	c := t.core
	value, err := t.limits.Shift(a.Value)
	if err != nil {
		return err
	}
	e := &tokenbridge.Event{
		Type:            tokenbridge.AffirmationCompleted,
		Hash:            hash,
		TransactionHash: a.TransactionHash,
		Asset:           c.assetOf(a.Asset),
		Recipient:       a.Recipient,
		Responsible:     responsible,
		Value:           value,
	}

	manager, err := t.feeManager()
	if err != nil {
		return err
	}
	fee := manager.Fee(value, fees.HomeFee)
	status, err := t.executeTransfer(&tokenbridge.Event{
		Hash:            hash,
		TransactionHash: a.TransactionHash,
		Asset:           e.Asset,
		Recipient:       a.Recipient,
		Value:           value,
	}, fee)
	if err != nil {
		return err
	}
	if status.Success && !fee.IsZero() {
		if err := t.distributeFee(hash, e.Asset, fee, responsible); err != nil {
			return err
		}
		e.Value = new(uint256.Int).Sub(value, fee)
	}
	if err := t.store.PutExecutionStatus(hash, status); err != nil {
		return err
	}
	e.Status = status.Success
	return t.emit(e)
}

// ExecuteMessageAffirmation records validator's attestation of an arbitrary
// message sent from the foreign side. The message is parsed before anything
// is recorded. On quorum the executor is invoked; a failed call is recorded
// with its payload so that it can be retried.
func (c *Core) ExecuteMessageAffirmation(ctx context.Context, validator common.Address, message []byte) (*signatures.Outcome, error) {
	if err := c.onlySide(tokenbridge.Home, "executeMessageAffirmation"); err != nil {
		return nil, err
	}
	if err := c.onlyMessageMode("executeMessageAffirmation"); err != nil {
		return nil, err
	}
	msg, err := tokenbridge.ParseMessage(message, c.chainID)
	if err != nil {
		return nil, err
	}

	var out *signatures.Outcome
	err = c.update("execute_message_affirmation", func(t *txn) error {
		hash := tokenbridge.Keccak256(message)
		var err error
		out, err = t.collector.Affirm(validator, hash)
		if err != nil {
			return err
		}
		if err := t.emit(&tokenbridge.Event{
			Type:          tokenbridge.SignedForAffirmation,
			MessageID:     msg.MessageID,
			Hash:          hash,
			Sender:        msg.Sender,
			Recipient:     msg.Executor,
			Responsible:   validator,
			NumSignatures: out.Status.Count,
		}); err != nil {
			return err
		}
		if !out.Completed {
			return nil
		}

		ok, err := t.invoke(ctx, msg)
		if err != nil {
			return err
		}
		if err := t.store.PutExecutionStatus(hash, &state.ExecutionStatus{Success: ok}); err != nil {
			return err
		}
		return t.emit(&tokenbridge.Event{
			Type:        tokenbridge.AffirmationCompleted,
			MessageID:   msg.MessageID,
			Hash:        hash,
			Sender:      msg.Sender,
			Recipient:   msg.Executor,
			Responsible: validator,
			Status:      ok,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// invoke runs msg's call and records its status. A failed call keeps the data
// needed to retry it.
func (t *txn) invoke(ctx context.Context, msg *tokenbridge.Message) (bool, error) {
	ok, ret := t.core.calls.Invoke(ctx, msg.Sender, msg.Executor, msg.Data, msg.GasLimit)
	status := &state.CallStatus{
		MessageID: msg.MessageID,
		Success:   ok,
		Sender:    msg.Sender,
		Executor:  msg.Executor,
		GasLimit:  msg.GasLimit,
		DataHash:  tokenbridge.Keccak256(msg.Data),
	}
	if !ok {
		status.Data = common.CopyBytes(msg.Data)
	}
	if err := t.store.PutCallStatus(status); err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return false, t.emit(&tokenbridge.Event{
		Type:      tokenbridge.DownstreamCallFailed,
		MessageID: msg.MessageID,
		Hash:      status.DataHash,
		Sender:    msg.Sender,
		Recipient: msg.Executor,
		Data:      ret,
	})
}

// RetryFailedMessage invokes a failed call again. Only the owner or the
// message's original sender may retry.
func (c *Core) RetryFailedMessage(ctx context.Context, caller common.Address, messageID ids.ID) (bool, error) {
	if err := c.onlyMessageMode("retryFailedMessage"); err != nil {
		return false, err
	}

	var ok bool
	err := c.update("retry_failed_message", func(t *txn) error {
		status, err := t.store.CallStatus(messageID)
		if err != nil {
			return err
		}
		if status == nil {
			return fmt.Errorf("%w: %s", tokenbridge.ErrMessageNotFound, common.Hash(messageID).Hex())
		}
		if status.Success {
			return fmt.Errorf("%w: %s", tokenbridge.ErrNotFailed, common.Hash(messageID).Hex())
		}
		if caller != status.Sender {
			if err := t.onlyOwner(caller); err != nil {
				return err
			}
		}

		var ret []byte
		ok, ret = c.calls.Invoke(ctx, status.Sender, status.Executor, status.Data, status.GasLimit)
		status.Retries++
		if ok {
			status.Success = true
			status.Data = nil
		}
		if err := t.store.PutCallStatus(status); err != nil {
			return err
		}
		return t.emit(&tokenbridge.Event{
			Type:        tokenbridge.FailedMessageRetried,
			MessageID:   messageID,
			Hash:        status.DataHash,
			Sender:      status.Sender,
			Recipient:   status.Executor,
			Responsible: caller,
			Status:      ok,
			Data:        ret,
		})
	})
	return ok, err
}
