// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var (
	token = common.HexToAddress("0x0100")
	alice = common.HexToAddress("0x0a")
)

func TestTransfers(t *testing.T) {
	require := require.New(t)
	c := NewMemoryChain()

	require.True(c.CreditNative(alice, uint256.NewInt(5)))
	require.Equal(uint64(5), c.BalanceOf(common.Address{}, alice).Uint64())

	require.False(c.DebitToken(token, alice, uint256.NewInt(1)))
	c.Mint(token, alice, uint256.NewInt(10))
	require.True(c.DebitToken(token, alice, uint256.NewInt(4)))
	require.True(c.CreditToken(token, alice, uint256.NewInt(1)))
	require.Equal(uint64(7), c.BalanceOf(token, alice).Uint64())

	c.SetFailing(token, true)
	require.False(c.CreditToken(token, alice, uint256.NewInt(1)))
	require.False(c.DebitToken(token, alice, uint256.NewInt(1)))
	require.Equal(uint64(7), c.BalanceOf(token, alice).Uint64())

	c.Mint(token, alice, new(uint256.Int).SetAllOne())
	c.SetFailing(token, false)
	require.False(c.CreditToken(token, alice, uint256.NewInt(1)))
}

func TestInvoke(t *testing.T) {
	tests := []struct {
		name     string
		handler  Handler
		executor common.Address
		success  bool
		output   []byte
	}{
		{
			name: "success",
			handler: func(_ context.Context, sender common.Address, data []byte, _ uint32) ([]byte, error) {
				return append(sender.Bytes(), data...), nil
			},
			executor: token,
			success:  true,
			output:   append(alice.Bytes(), 0x01),
		},
		{
			name: "handler error",
			handler: func(context.Context, common.Address, []byte, uint32) ([]byte, error) {
				return nil, errors.New("reverted")
			},
			executor: token,
			output:   []byte("reverted"),
		},
		{
			name:     "unknown executor",
			executor: common.HexToAddress("0xff"),
			output:   []byte(errNoHandler.Error()),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			c := NewMemoryChain()
			if tt.handler != nil {
				c.RegisterHandler(token, tt.handler)
			}

			ok, out := c.Invoke(context.Background(), alice, tt.executor, []byte{0x01}, 50_000)
			require.Equal(tt.success, ok)
			require.Equal(tt.output, out)
		})
	}
}
