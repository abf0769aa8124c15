// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/vm/utils/timer/mockable"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/chain"
	"github.com/luxfi/tokenbridge/limits"
	"github.com/luxfi/tokenbridge/metrics"
	"github.com/luxfi/tokenbridge/state"
	"github.com/luxfi/tokenbridge/validators"
)

// DefaultMaxGasPerTx is the gas ceiling of a fresh arbitrary message bridge
const DefaultMaxGasPerTx uint32 = 2_000_000

// Config configuration for a bridge core
type Config struct {
	Mode tokenbridge.Mode
	Side tokenbridge.Side

	// ChainID is the chain this core runs on, RemoteChainID the other side's
	ChainID       *uint256.Int
	RemoteChainID *uint256.Int

	// Address is this deployment's address and RemoteAddress the paired
	// deployment's. Token messages name the destination deployment.
	Address       common.Address
	RemoteAddress common.Address

	// Asset is the asset moved by single-asset token modes; the zero address
	// is the native coin
	Asset common.Address

	// DecimalShift scales foreign units to home units: home = foreign * 10^shift
	DecimalShift int

	// Genesis values, applied only when the store is empty
	Owner       common.Address
	MaxGasPerTx uint32
	Limits      map[common.Address]*state.Limits
	Fees        *state.FeeConfig

	DB         database.Database
	Validators validators.Set
	Assets     chain.AssetTransfer
	Calls      chain.ArbitraryCall
	Clock      limits.Clock
	Log        log.Logger
	Metrics    *metrics.BridgeMetrics
}

// Validate checks the configuration and fills in optional collaborators
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: mode %d", tokenbridge.ErrUnsupportedMode, c.Mode)
	}
	if c.Side != tokenbridge.Home && c.Side != tokenbridge.Foreign {
		return fmt.Errorf("%w: side %d", tokenbridge.ErrUnsupportedSide, c.Side)
	}
	if c.ChainID == nil || c.ChainID.IsZero() {
		return fmt.Errorf("%w: chain id must be non-zero", tokenbridge.ErrInvalidChainID)
	}
	if c.RemoteChainID == nil || c.RemoteChainID.IsZero() {
		return fmt.Errorf("%w: remote chain id must be non-zero", tokenbridge.ErrInvalidChainID)
	}
	if c.ChainID.Eq(c.RemoteChainID) {
		return fmt.Errorf("%w: both sides on chain %s", tokenbridge.ErrInvalidChainID, c.ChainID.Dec())
	}
	if err := limits.ValidateDecimalShift(c.DecimalShift); err != nil {
		return err
	}
	if c.Owner == (common.Address{}) {
		return fmt.Errorf("%w: owner", tokenbridge.ErrZeroAddress)
	}
	if c.MaxGasPerTx == 0 {
		c.MaxGasPerTx = DefaultMaxGasPerTx
	}
	if c.MaxGasPerTx < tokenbridge.MinimumGasUsage {
		return fmt.Errorf("%w: max gas per tx %d below %d", tokenbridge.ErrGasOutOfBounds, c.MaxGasPerTx, tokenbridge.MinimumGasUsage)
	}
	if c.DB == nil {
		return fmt.Errorf("%w: no database", tokenbridge.ErrValidation)
	}
	if c.Validators == nil {
		return fmt.Errorf("%w: no validator set", tokenbridge.ErrValidation)
	}
	if c.Mode.IsToken() && c.Assets == nil {
		return fmt.Errorf("%w: token mode requires asset transfers", tokenbridge.ErrValidation)
	}
	if c.Mode == tokenbridge.ArbitraryMessageMode && c.Calls == nil {
		return fmt.Errorf("%w: arbitrary message mode requires a call capability", tokenbridge.ErrValidation)
	}
	if c.Clock == nil {
		c.Clock = &mockable.Clock{}
	}
	if c.Log == nil {
		c.Log = log.NewNoOpLogger()
	}
	return nil
}
