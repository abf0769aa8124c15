// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain defines the capabilities the bridge core invokes on the chain
// it runs against, and an in-memory chain implementing them.
package chain

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// AssetTransfer moves value on the local chain. Failures are reported as a
// false result and never abort a bridge operation.
type AssetTransfer interface {
	// CreditNative pays amount of the native coin to recipient
	CreditNative(recipient common.Address, amount *uint256.Int) bool

	// CreditToken mints or transfers amount of asset to recipient
	CreditToken(asset, recipient common.Address, amount *uint256.Int) bool

	// DebitToken takes amount of asset from holder, locking or burning it
	DebitToken(asset, holder common.Address, amount *uint256.Int) bool

	// BalanceOf returns holder's balance of asset
	BalanceOf(asset, holder common.Address) *uint256.Int
}

// ArbitraryCall invokes an executor on the local chain on behalf of a remote
// sender. A failed call is a false result, not an error.
type ArbitraryCall interface {
	Invoke(ctx context.Context, sender, executor common.Address, data []byte, gasLimit uint32) (bool, []byte)
}
