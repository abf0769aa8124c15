// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/limits"
	"github.com/luxfi/tokenbridge/state"
)

// RequestToPass builds an arbitrary message from sender to executor on the
// remote chain and queues it for validators. Home messages are signed and
// relayed to the foreign side; foreign messages are affirmed on the home side.
func (c *Core) RequestToPass(sender, executor common.Address, data []byte, gasLimit uint32) (*tokenbridge.Message, error) {
	if err := c.onlyMessageMode("requestToPass"); err != nil {
		return nil, err
	}

	var msg *tokenbridge.Message
	err := c.update("request_to_pass", func(t *txn) error {
		maxGas, _, err := t.store.MaxGasPerTx()
		if err != nil {
			return err
		}
		// validate before the nonce is consumed
		if err := tokenbridge.ValidateGasLimit(gasLimit, maxGas); err != nil {
			return err
		}
		nonce, err := t.nextNonce()
		if err != nil {
			return err
		}
		msg, err = c.builder.Build(nonce, sender, executor, data, gasLimit, maxGas, c.remoteChainID)
		if err != nil {
			return err
		}
		encoded := msg.Bytes()
		if err := t.store.PutMessage(msg.MessageID, encoded); err != nil {
			return err
		}
		return t.emit(&tokenbridge.Event{
			Type:      c.outboundEventType(),
			MessageID: msg.MessageID,
			Hash:      tokenbridge.Keccak256(encoded),
			Sender:    sender,
			Recipient: executor,
			Data:      encoded,
		})
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// RelayTokens takes value of asset from sender and requests its transfer to
// recipient on the remote chain. asset is ignored outside the multi-token
// mode. On the home side a foreign fee, if configured, is withheld from the
// transferred value until the transfer's signatures are collected.
func (c *Core) RelayTokens(sender, recipient, asset common.Address, value *uint256.Int) (*tokenbridge.Event, error) {
	if err := c.onlyTokenMode("relayTokens"); err != nil {
		return nil, err
	}
	if value == nil || value.IsZero() {
		return nil, fmt.Errorf("%w: transfer value", tokenbridge.ErrZeroValue)
	}
	if recipient == (common.Address{}) {
		return nil, fmt.Errorf("%w: recipient", tokenbridge.ErrZeroAddress)
	}
	asset = c.assetOf(asset)

	var event *tokenbridge.Event
	err := c.update("relay_tokens", func(t *txn) error {
		if _, err := t.limits.CheckAndReserve(asset, value, limits.Outgoing); err != nil {
			return err
		}
		if !c.assets.DebitToken(asset, sender, value) {
			return fmt.Errorf("%w: %s of %s from %s", tokenbridge.ErrDebitFailed, value.Dec(), asset, sender)
		}

		var err error
		event, err = t.requestTransfer(asset, sender, recipient, value, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// requestTransfer emits the outbound request for a transfer whose value has
// already been booked against the outgoing limits
func (t *txn) requestTransfer(asset, sender, recipient common.Address, value *uint256.Int, chargeFee bool) (*tokenbridge.Event, error) {
	c := t.core
	txHash, err := t.nextTransactionHash()
	if err != nil {
		return nil, err
	}

	if c.side == tokenbridge.Foreign {
		e := &tokenbridge.Event{
			Type:            tokenbridge.UserRequestForAffirmation,
			TransactionHash: txHash,
			Asset:           asset,
			Sender:          sender,
			Recipient:       recipient,
			Value:           new(uint256.Int).Set(value),
		}
		e.Hash = (&tokenbridge.Affirmation{
			Asset:           asset,
			Recipient:       recipient,
			Value:           value,
			TransactionHash: txHash,
		}).Hash(c.multiToken())
		return e, t.emit(e)
	}

	net, fee := new(uint256.Int).Set(value), new(uint256.Int)
	if chargeFee {
		manager, err := t.feeManager()
		if err != nil {
			return nil, err
		}
		fee = manager.Fee(value, fees.ForeignFee)
		net.Sub(value, fee)
	}
	msg := &tokenbridge.TokenMessage{
		Asset:           asset,
		Recipient:       recipient,
		Value:           net,
		TransactionHash: txHash,
		Bridge:          c.remoteAddress,
	}
	encoded := msg.Bytes(c.multiToken())
	hash := tokenbridge.Keccak256(encoded)
	if !fee.IsZero() {
		if err := t.store.PutPendingFee(hash, &state.PendingFee{Asset: asset, Amount: fee}); err != nil {
			return nil, err
		}
	}

	e := &tokenbridge.Event{
		Type:            tokenbridge.UserRequestForSignature,
		Hash:            hash,
		TransactionHash: txHash,
		Asset:           asset,
		Sender:          sender,
		Recipient:       recipient,
		Value:           net,
		Data:            encoded,
	}
	return e, t.emit(e)
}

func (c *Core) outboundEventType() tokenbridge.EventType {
	if c.side == tokenbridge.Home {
		return tokenbridge.UserRequestForSignature
	}
	return tokenbridge.UserRequestForAffirmation
}

func (t *txn) feeManager() (fees.Manager, error) {
	cfg, err := t.store.FeeConfig()
	if err != nil {
		return nil, err
	}
	return fees.NewManager(cfg)
}
