// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	_ AssetTransfer = (*MemoryChain)(nil)
	_ ArbitraryCall = (*MemoryChain)(nil)

	errNoHandler = errors.New("no handler registered for executor")
)

// Handler executes a call addressed to a registered executor. A returned
// error fails the call.
type Handler func(ctx context.Context, sender common.Address, data []byte, gasLimit uint32) ([]byte, error)

// MemoryChain is an in-memory ledger of balances and call handlers standing in
// for a real chain
type MemoryChain struct {
	mu       sync.RWMutex
	balances map[common.Address]map[common.Address]*uint256.Int
	handlers map[common.Address]Handler
	// failing assets reject every credit and debit
	failing map[common.Address]bool
}

// NewMemoryChain creates a new empty memory chain
func NewMemoryChain() *MemoryChain {
	return &MemoryChain{
		balances: make(map[common.Address]map[common.Address]*uint256.Int),
		handlers: make(map[common.Address]Handler),
		failing:  make(map[common.Address]bool),
	}
}

// CreditNative pays the native coin, keyed by the zero asset address
func (c *MemoryChain) CreditNative(recipient common.Address, amount *uint256.Int) bool {
	return c.CreditToken(common.Address{}, recipient, amount)
}

func (c *MemoryChain) CreditToken(asset, recipient common.Address, amount *uint256.Int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failing[asset] {
		return false
	}
	balance := c.balance(asset, recipient)
	sum, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return false
	}
	c.setBalance(asset, recipient, sum)
	return true
}

func (c *MemoryChain) DebitToken(asset, holder common.Address, amount *uint256.Int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failing[asset] {
		return false
	}
	balance := c.balance(asset, holder)
	if balance.Lt(amount) {
		return false
	}
	c.setBalance(asset, holder, new(uint256.Int).Sub(balance, amount))
	return true
}

func (c *MemoryChain) BalanceOf(asset, holder common.Address) *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return new(uint256.Int).Set(c.balance(asset, holder))
}

// Mint sets up a balance outside the bridge, e.g. a user's funds before an
// outbound transfer
func (c *MemoryChain) Mint(asset, holder common.Address, amount *uint256.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setBalance(asset, holder, new(uint256.Int).Add(c.balance(asset, holder), amount))
}

// SetFailing makes every transfer of asset fail until cleared
func (c *MemoryChain) SetFailing(asset common.Address, failing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failing[asset] = failing
}

// RegisterHandler routes calls addressed to executor to h
func (c *MemoryChain) RegisterHandler(executor common.Address, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[executor] = h
}

// Invoke runs the handler registered for executor. Calls to unknown executors
// fail.
func (c *MemoryChain) Invoke(ctx context.Context, sender, executor common.Address, data []byte, gasLimit uint32) (bool, []byte) {
	c.mu.RLock()
	h, ok := c.handlers[executor]
	c.mu.RUnlock()

	if !ok {
		return false, []byte(errNoHandler.Error())
	}
	out, err := h(ctx, sender, data, gasLimit)
	if err != nil {
		return false, []byte(err.Error())
	}
	return true, out
}

func (c *MemoryChain) balance(asset, holder common.Address) *uint256.Int {
	if b, ok := c.balances[asset][holder]; ok {
		return b
	}
	return new(uint256.Int)
}

func (c *MemoryChain) setBalance(asset, holder common.Address, v *uint256.Int) {
	holders, ok := c.balances[asset]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		c.balances[asset] = holders
	}
	holders[holder] = v
}
