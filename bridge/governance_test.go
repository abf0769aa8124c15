// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/limits"
	"github.com/luxfi/tokenbridge/state"
)

func TestSetLimit(t *testing.T) {
	tests := []struct {
		name        string
		caller      common.Address
		field       limits.Field
		value       *uint256.Int
		expectedErr error
	}{
		{
			name:   "raise daily limit",
			caller: owner,
			field:  limits.DailyLimit,
			value:  new(uint256.Int).Mul(ether, uint256.NewInt(20)),
		},
		{
			name:   "disable outbound transfers",
			caller: owner,
			field:  limits.DailyLimit,
			value:  new(uint256.Int),
		},
		{
			name:        "not the owner",
			caller:      bob,
			field:       limits.DailyLimit,
			value:       ether,
			expectedErr: tokenbridge.ErrNotOwner,
		},
		{
			name:        "max per tx above daily limit",
			caller:      owner,
			field:       limits.MaxPerTx,
			value:       new(uint256.Int).Mul(ether, uint256.NewInt(11)),
			expectedErr: tokenbridge.ErrInvalidLimits,
		},
		{
			name:        "min per tx above max per tx",
			caller:      owner,
			field:       limits.MinPerTx,
			value:       new(uint256.Int).Mul(ether, uint256.NewInt(6)),
			expectedErr: tokenbridge.ErrInvalidLimits,
		},
		{
			name:        "execution max above execution daily limit",
			caller:      owner,
			field:       limits.ExecutionMaxPerTx,
			value:       new(uint256.Int).Mul(ether, uint256.NewInt(11)),
			expectedErr: tokenbridge.ErrInvalidLimits,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			tb := newTestBridge(t, tokenbridge.ErcToErcMode, tokenbridge.Home, 1, 1)
			before, err := tb.core.Limits(token)
			require.NoError(err)

			_, err = tb.core.SetLimit(test.caller, token, test.field, test.value)
			require.ErrorIs(err, test.expectedErr)

			after, err := tb.core.Limits(token)
			require.NoError(err)
			if test.expectedErr != nil {
				require.Equal(before.Limits, after.Limits)
				require.Empty(tb.events(t))
				return
			}
			changed := tb.eventsOf(t, tokenbridge.LimitsChanged)
			require.Len(changed, 1)
			require.Equal(test.field.String(), string(changed[0].Data))
		})
	}
}

func TestDisabledAssetRejectsTransfers(t *testing.T) {
	require := require.New(t)

	tb := newTestBridge(t, tokenbridge.ErcToErcMode, tokenbridge.Home, 1, 1)
	_, err := tb.core.SetDailyLimit(owner, token, new(uint256.Int))
	require.NoError(err)

	tb.chain.Mint(token, alice, ether)
	_, err = tb.core.RelayTokens(alice, bob, token, ether)
	require.ErrorIs(err, tokenbridge.ErrAssetDisabled)
}

func TestFeeConfiguration(t *testing.T) {
	require := require.New(t)

	tb := newTestBridge(t, tokenbridge.ErcToErcMode, tokenbridge.Home, 1, 1)
	fee := uint256.NewInt(1_000_000_000_000_000)

	require.ErrorIs(tb.core.SetHomeFee(owner, fee), tokenbridge.ErrFeeManagerNotSet)
	require.ErrorIs(tb.core.SetFeeManager(bob, fees.OneDirection), tokenbridge.ErrNotOwner)

	require.NoError(tb.core.SetFeeManager(owner, fees.BothDirections))
	require.NoError(tb.core.SetHomeFee(owner, fee))
	require.NoError(tb.core.SetForeignFee(owner, fee))
	require.ErrorIs(tb.core.SetForeignFee(owner, ether), tokenbridge.ErrFeeTooHigh)

	status, err := tb.core.Fees()
	require.NoError(err)
	require.Equal(fees.BothDirections, status.Kind)
	require.Equal(tokenbridge.Keccak4("manages-both-directions"), status.Mode)
	require.Equal(fee, status.HomeFee)
	require.Equal(fee, status.ForeignFee)
	require.Len(tb.eventsOf(t, tokenbridge.FeeConfigChanged), 3)

	require.NoError(tb.core.SetFeeManager(owner, fees.OneDirection))
	status, err = tb.core.Fees()
	require.NoError(err)
	require.Equal(tokenbridge.Keccak4("manages-one-direction"), status.Mode)
	require.Equal(fee, status.HomeFee)
}

func TestFeeConfigurationUnsupported(t *testing.T) {
	require := require.New(t)

	foreign := newTestBridge(t, tokenbridge.ErcToErcMode, tokenbridge.Foreign, 1, 1)
	require.ErrorIs(foreign.core.SetFeeManager(owner, fees.OneDirection), tokenbridge.ErrUnsupportedSide)

	amb := newTestBridge(t, tokenbridge.ArbitraryMessageMode, tokenbridge.Home, 1, 1)
	require.ErrorIs(amb.core.SetFeeManager(owner, fees.OneDirection), tokenbridge.ErrUnsupportedMode)

	cfg := foreign.cfg
	cfg.DB = memdb.New()
	cfg.Fees = &state.FeeConfig{Kind: uint8(fees.OneDirection)}
	_, err := New(cfg)
	require.ErrorIs(err, tokenbridge.ErrUnsupportedSide)
}

func TestTransferOwnership(t *testing.T) {
	require := require.New(t)

	tb := newTestBridge(t, tokenbridge.ArbitraryMessageMode, tokenbridge.Home, 1, 1)

	require.ErrorIs(tb.core.TransferOwnership(bob, alice), tokenbridge.ErrNotOwner)
	require.ErrorIs(tb.core.TransferOwnership(owner, common.Address{}), tokenbridge.ErrZeroAddress)
	require.NoError(tb.core.TransferOwnership(owner, alice))

	got, err := tb.core.Owner()
	require.NoError(err)
	require.Equal(alice, got)

	require.ErrorIs(tb.core.SetMaxGasPerTx(owner, 100_000), tokenbridge.ErrNotOwner)
	require.NoError(tb.core.SetMaxGasPerTx(alice, 100_000))
	require.ErrorIs(tb.core.SetMaxGasPerTx(alice, 20_000), tokenbridge.ErrGasOutOfBounds)

	gas, err := tb.core.MaxGasPerTx()
	require.NoError(err)
	require.Equal(uint32(100_000), gas)

	transferred := tb.eventsOf(t, tokenbridge.OwnershipTransferred)
	require.Len(transferred, 1)
	require.Equal(alice, transferred[0].Recipient)
}

func TestClaimTokens(t *testing.T) {
	require := require.New(t)

	tb := newTestBridge(t, tokenbridge.ErcToErcMode, tokenbridge.Home, 1, 1)
	stray := common.HexToAddress("0x8000000000000000000000000000000000000008")
	tb.chain.Mint(stray, homeAddress, ether)
	tb.chain.Mint(token, homeAddress, ether)

	_, err := tb.core.ClaimTokens(owner, token, bob)
	require.ErrorIs(err, tokenbridge.ErrBridgedAsset)

	_, err = tb.core.ClaimTokens(bob, stray, bob)
	require.ErrorIs(err, tokenbridge.ErrNotOwner)

	amount, err := tb.core.ClaimTokens(owner, stray, bob)
	require.NoError(err)
	require.Equal(ether, amount)
	require.Equal(ether, tb.chain.BalanceOf(stray, bob))
	require.True(tb.chain.BalanceOf(stray, homeAddress).IsZero())

	_, err = tb.core.ClaimTokens(owner, stray, bob)
	require.ErrorIs(err, tokenbridge.ErrNothingToClaim)
	require.Len(tb.eventsOf(t, tokenbridge.TokensClaimed), 1)
}

func TestClaimTokensMultiToken(t *testing.T) {
	require := require.New(t)

	tb := newTestBridge(t, tokenbridge.MultiTokenMode, tokenbridge.Home, 1, 1)
	stray := common.HexToAddress("0x8000000000000000000000000000000000000008")
	tb.chain.Mint(token, homeAddress, ether)
	tb.chain.Mint(stray, homeAddress, ether)

	// assets with limits are bridged
	_, err := tb.core.ClaimTokens(owner, token, bob)
	require.ErrorIs(err, tokenbridge.ErrBridgedAsset)

	_, err = tb.core.ClaimTokens(owner, stray, bob)
	require.NoError(err)
	require.Equal(ether, tb.chain.BalanceOf(stray, bob))
}
