// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tokenbridge"
)

var (
	addr1   = common.HexToAddress("0x0100000000000000000000000000000000000001")
	addr2   = common.HexToAddress("0x0200000000000000000000000000000000000002")
	addr3   = common.HexToAddress("0x0300000000000000000000000000000000000003")
	reward1 = common.HexToAddress("0x0a00000000000000000000000000000000000001")
)

func TestNewStatic(t *testing.T) {
	tests := []struct {
		name     string
		required uint64
		vdrs     []Validator
		err      error
	}{
		{
			name:     "valid",
			required: 2,
			vdrs:     []Validator{{Address: addr1}, {Address: addr2}},
		},
		{
			name:     "empty",
			required: 1,
			err:      ErrEmptySet,
		},
		{
			name:     "zero threshold",
			required: 0,
			vdrs:     []Validator{{Address: addr1}},
			err:      tokenbridge.ErrInvalidThreshold,
		},
		{
			name:     "threshold above size",
			required: 3,
			vdrs:     []Validator{{Address: addr1}, {Address: addr2}},
			err:      tokenbridge.ErrInvalidThreshold,
		},
		{
			name:     "duplicate",
			required: 1,
			vdrs:     []Validator{{Address: addr1}, {Address: addr1}},
			err:      ErrDuplicateValidator,
		},
		{
			name:     "zero address",
			required: 1,
			vdrs:     []Validator{{}},
			err:      tokenbridge.ErrZeroAddress,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewStatic(test.required, test.vdrs...)
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestStaticMembership(t *testing.T) {
	require := require.New(t)

	s, err := NewStatic(1, Validator{Address: addr1, RewardAddress: reward1}, Validator{Address: addr2})
	require.NoError(err)

	require.True(s.IsValidator(addr1))
	require.False(s.IsValidator(addr3))
	require.Equal(reward1, s.RewardAddressOf(addr1))
	require.Equal(addr2, s.RewardAddressOf(addr2))
	require.Equal([]common.Address{addr1, addr2}, s.Validators())
	require.Equal([]common.Address{reward1, addr2}, RewardAddresses(s))

	require.NoError(s.AddValidator(Validator{Address: addr3}))
	require.NoError(s.SetRequiredSignatures(3))
	require.Equal(uint64(3), s.RequiredSignatures())

	// removal may not drop below the threshold
	require.ErrorIs(s.RemoveValidator(addr2), tokenbridge.ErrInvalidThreshold)
	require.NoError(s.SetRequiredSignatures(2))
	require.NoError(s.RemoveValidator(addr2))
	require.Equal([]common.Address{addr1, addr3}, s.Validators())
	require.False(s.IsValidator(addr2))

	require.ErrorIs(s.RemoveValidator(addr2), ErrUnknownValidator)
	require.ErrorIs(s.SetRequiredSignatures(3), tokenbridge.ErrInvalidThreshold)
}
