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

// FixAssetsAboveLimits releases amount of the value held for txHash. With
// alsoForward the released amount is sent back to the transfer's recipient
// on the other chain, subject to the outgoing limits and without a fee.
func (c *Core) FixAssetsAboveLimits(caller common.Address, txHash common.Hash, amount *uint256.Int, alsoForward bool) (*state.OutOfLimitEntry, error) {
	if err := c.onlyTokenMode("fixAssetsAboveLimits"); err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, fmt.Errorf("%w: release amount", tokenbridge.ErrZeroValue)
	}

	var entry *state.OutOfLimitEntry
	err := c.update("fix_assets_above_limits", func(t *txn) error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		var err error
		entry, err = t.ledger.Release(txHash, amount)
		if err != nil {
			return err
		}
		if err := t.emit(&tokenbridge.Event{
			Type:            tokenbridge.AssetAboveLimitsFixed,
			TransactionHash: txHash,
			Asset:           entry.Asset,
			Recipient:       entry.Recipient,
			Responsible:     caller,
			Value:           new(uint256.Int).Set(amount),
			Remaining:       entry.Remaining,
			Status:          alsoForward,
		}); err != nil {
			return err
		}
		if !alsoForward {
			return nil
		}
		if _, err := t.limits.CheckAndReserve(entry.Asset, amount, limits.Outgoing); err != nil {
			return err
		}
		_, err = t.requestTransfer(entry.Asset, c.address, entry.Recipient, amount, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SetLimit changes one limit of asset. The full configuration is re-checked
// after every change.
func (c *Core) SetLimit(caller, asset common.Address, field limits.Field, value *uint256.Int) (*state.Limits, error) {
	if value == nil {
		value = new(uint256.Int)
	}

	var l *state.Limits
	err := c.update("set_limit", func(t *txn) error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		var err error
		l, err = t.limits.Set(asset, field, value)
		if err != nil {
			return err
		}
		return t.emit(&tokenbridge.Event{
			Type:        tokenbridge.LimitsChanged,
			Asset:       asset,
			Responsible: caller,
			Value:       new(uint256.Int).Set(value),
			Data:        []byte(field.String()),
		})
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (c *Core) SetDailyLimit(caller, asset common.Address, value *uint256.Int) (*state.Limits, error) {
	return c.SetLimit(caller, asset, limits.DailyLimit, value)
}

func (c *Core) SetMaxPerTx(caller, asset common.Address, value *uint256.Int) (*state.Limits, error) {
	return c.SetLimit(caller, asset, limits.MaxPerTx, value)
}

func (c *Core) SetMinPerTx(caller, asset common.Address, value *uint256.Int) (*state.Limits, error) {
	return c.SetLimit(caller, asset, limits.MinPerTx, value)
}

func (c *Core) SetExecutionDailyLimit(caller, asset common.Address, value *uint256.Int) (*state.Limits, error) {
	return c.SetLimit(caller, asset, limits.ExecutionDailyLimit, value)
}

func (c *Core) SetExecutionMaxPerTx(caller, asset common.Address, value *uint256.Int) (*state.Limits, error) {
	return c.SetLimit(caller, asset, limits.ExecutionMaxPerTx, value)
}

// SetFeeManager selects the fee strategy. Rates already configured are kept.
func (c *Core) SetFeeManager(caller common.Address, kind fees.Kind) error {
	return c.updateFees("set_fee_manager", caller, func(cfg *state.FeeConfig) error {
		cfg.Kind = uint8(kind)
		return nil
	})
}

// SetHomeFee sets the fee rate charged on affirmations. 1e18 is 100%.
func (c *Core) SetHomeFee(caller common.Address, fee *uint256.Int) error {
	if fee == nil {
		fee = new(uint256.Int)
	}
	return c.updateFees("set_home_fee", caller, func(cfg *state.FeeConfig) error {
		if fees.Kind(cfg.Kind) == fees.NoFee {
			return tokenbridge.ErrFeeManagerNotSet
		}
		cfg.HomeFee = new(uint256.Int).Set(fee)
		return nil
	})
}

// SetForeignFee sets the fee rate withheld from home to foreign transfers
func (c *Core) SetForeignFee(caller common.Address, fee *uint256.Int) error {
	if fee == nil {
		fee = new(uint256.Int)
	}
	return c.updateFees("set_foreign_fee", caller, func(cfg *state.FeeConfig) error {
		if fees.Kind(cfg.Kind) == fees.NoFee {
			return tokenbridge.ErrFeeManagerNotSet
		}
		cfg.ForeignFee = new(uint256.Int).Set(fee)
		return nil
	})
}

func (c *Core) updateFees(command string, caller common.Address, fn func(*state.FeeConfig) error) error {
	if err := c.onlySide(tokenbridge.Home, command); err != nil {
		return err
	}
	if err := c.onlyTokenMode(command); err != nil {
		return err
	}
	return c.update(command, func(t *txn) error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		cfg, err := t.store.FeeConfig()
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		manager, err := fees.NewManager(cfg)
		if err != nil {
			return err
		}
		if err := t.store.PutFeeConfig(cfg); err != nil {
			return err
		}
		mode := manager.Mode()
		return t.emit(&tokenbridge.Event{
			Type:        tokenbridge.FeeConfigChanged,
			Responsible: caller,
			Data:        []byte(command + ":" + manager.Kind().String() + ":" + common.Bytes2Hex(mode[:])),
		})
	})
}

// SetMaxGasPerTx sets the gas ceiling for outbound arbitrary messages
func (c *Core) SetMaxGasPerTx(caller common.Address, gas uint32) error {
	if gas < tokenbridge.MinimumGasUsage {
		return fmt.Errorf("%w: %d below %d", tokenbridge.ErrGasOutOfBounds, gas, tokenbridge.MinimumGasUsage)
	}
	return c.update("set_max_gas_per_tx", func(t *txn) error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		return t.store.SetMaxGasPerTx(gas)
	})
}

// TransferOwnership hands governance to newOwner
func (c *Core) TransferOwnership(caller, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner", tokenbridge.ErrZeroAddress)
	}
	return c.update("transfer_ownership", func(t *txn) error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		if err := t.store.SetOwner(newOwner); err != nil {
			return err
		}
		return t.emit(&tokenbridge.Event{
			Type:        tokenbridge.OwnershipTransferred,
			Sender:      caller,
			Recipient:   newOwner,
			Responsible: caller,
		})
	})
}

// ClaimTokens sweeps the bridge's whole balance of an asset it does not bridge
// to to
func (c *Core) ClaimTokens(caller, asset, to common.Address) (*uint256.Int, error) {
	if to == (common.Address{}) {
		return nil, fmt.Errorf("%w: claim recipient", tokenbridge.ErrZeroAddress)
	}
	if c.assets == nil {
		return nil, fmt.Errorf("%w: claimTokens without asset transfers", tokenbridge.ErrUnsupportedMode)
	}

	var amount *uint256.Int
	err := c.update("claim_tokens", func(t *txn) error {
		if err := t.onlyOwner(caller); err != nil {
			return err
		}
		bridged, err := t.isBridged(asset)
		if err != nil {
			return err
		}
		if bridged {
			return fmt.Errorf("%w: %s", tokenbridge.ErrBridgedAsset, asset)
		}
		amount = c.assets.BalanceOf(asset, c.address)
		if amount.IsZero() {
			return fmt.Errorf("%w: %s", tokenbridge.ErrNothingToClaim, asset)
		}
		if !c.assets.DebitToken(asset, c.address, amount) {
			return fmt.Errorf("%w: %s of %s", tokenbridge.ErrDebitFailed, amount.Dec(), asset)
		}
		if !c.credit(asset, to, amount) {
			// put the balance back so the failed claim leaves no trace
			c.credit(asset, c.address, amount)
			return fmt.Errorf("%w: claim of %s", tokenbridge.ErrCallFailed, asset)
		}
		return t.emit(&tokenbridge.Event{
			Type:        tokenbridge.TokensClaimed,
			Asset:       asset,
			Recipient:   to,
			Responsible: caller,
			Value:       amount,
		})
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// isBridged reports whether asset is moved by this bridge. In the multi-token
// mode every asset with configured limits is bridged.
func (t *txn) isBridged(asset common.Address) (bool, error) {
	c := t.core
	if c.mode.IsToken() && !c.multiToken() {
		return asset == c.asset, nil
	}
	if !c.multiToken() {
		return false, nil
	}
	l, err := t.store.Limits(asset)
	if err != nil {
		return false, err
	}
	return !l.DailyLimit.IsZero() || !l.ExecutionDailyLimit.IsZero(), nil
}
