// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/signer"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var token = "0x3000000000000000000000000000000000000003"

func validConfig(t *testing.T) Config {
	s, err := signer.NewLocalSignerFromHex(testKey)
	require.NoError(t, err)

	return Config{
		LogLevel:           "info",
		APIPort:            8080,
		DBType:             MemDB,
		Mode:               "erc-to-erc",
		Owner:              "0x4000000000000000000000000000000000000004",
		RequiredSignatures: 1,
		SignatureCacheSize: DefaultSignatureCacheSize,
		Home: SideConfig{
			ChainID: 100,
			Address: "0x1000000000000000000000000000000000000001",
			Asset:   token,
		},
		Foreign: SideConfig{
			ChainID: 200,
			Address: "0x2000000000000000000000000000000000000002",
			Asset:   token,
		},
		Validators: []ValidatorConfig{
			{Address: s.Address().Hex()},
			{
				Address:       "0x8000000000000000000000000000000000000008",
				RewardAddress: "0x9000000000000000000000000000000000000009",
			},
		},
		Limits: []LimitsConfig{{
			Asset:               token,
			DailyLimit:          "1000",
			MaxPerTx:            "100",
			MinPerTx:            "1",
			ExecutionDailyLimit: "1000",
			ExecutionMaxPerTx:   "100",
		}},
		ValidatorKeys: []string{testKey},
	}
}

func TestValidate(t *testing.T) {
	require := require.New(t)

	cfg := validConfig(t)
	require.NoError(cfg.Validate())

	require.Equal(tokenbridge.ErcToErcMode, cfg.BridgeMode())
	require.Equal(common.HexToAddress("0x4000000000000000000000000000000000000004"), cfg.OwnerAddress())
	require.Nil(cfg.FeeConfig())

	vdrs := cfg.ValidatorSet()
	require.Len(vdrs, 2)
	require.Equal(vdrs[0].Address, vdrs[0].RewardAddress)
	require.Equal(common.HexToAddress("0x9000000000000000000000000000000000000009"), vdrs[1].RewardAddress)

	l := cfg.AssetLimits()[common.HexToAddress(token)]
	require.NotNil(l)
	require.Equal(uint256.NewInt(1000), l.DailyLimit)
	require.Equal(uint256.NewInt(1), l.MinPerTx)

	require.Len(cfg.Signers(), 1)
	require.Equal(vdrs[0].Address, cfg.Signers()[0].Address())

	require.Equal(uint256.NewInt(100), cfg.Home.ChainIDInt())
	require.Equal(common.HexToAddress(token), cfg.Foreign.AssetValue())
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectedErr error
	}{
		{
			name:        "unknown log level",
			modify:      func(c *Config) { c.LogLevel = "loud" },
			expectedErr: errUnknownLogLevel,
		},
		{
			name:        "unknown db",
			modify:      func(c *Config) { c.DBType = "leveldb" },
			expectedErr: errUnknownDBType,
		},
		{
			name:        "badgerdb without path",
			modify:      func(c *Config) { c.DBType = BadgerDB },
			expectedErr: errMissingDBPath,
		},
		{
			name:        "unknown mode",
			modify:      func(c *Config) { c.Mode = "teleport" },
			expectedErr: tokenbridge.ErrValidation,
		},
		{
			name:        "bad owner",
			modify:      func(c *Config) { c.Owner = "alice" },
			expectedErr: errInvalidAddress,
		},
		{
			name:        "zero owner",
			modify:      func(c *Config) { c.Owner = "0x0000000000000000000000000000000000000000" },
			expectedErr: tokenbridge.ErrZeroAddress,
		},
		{
			name:        "decimal shift out of range",
			modify:      func(c *Config) { c.DecimalShift = 78 },
			expectedErr: tokenbridge.ErrInvalidDecimalShift,
		},
		{
			name:        "same chain",
			modify:      func(c *Config) { c.Foreign.ChainID = c.Home.ChainID },
			expectedErr: tokenbridge.ErrInvalidChainID,
		},
		{
			name:        "missing chain id",
			modify:      func(c *Config) { c.Home.ChainID = 0 },
			expectedErr: tokenbridge.ErrInvalidChainID,
		},
		{
			name:        "low max gas",
			modify:      func(c *Config) { c.Home.MaxGasPerTx = 100 },
			expectedErr: tokenbridge.ErrGasOutOfBounds,
		},
		{
			name:        "no validators",
			modify:      func(c *Config) { c.Validators = nil },
			expectedErr: errNoValidators,
		},
		{
			name:        "threshold above set size",
			modify:      func(c *Config) { c.RequiredSignatures = 3 },
			expectedErr: tokenbridge.ErrInvalidThreshold,
		},
		{
			name:        "bad amount",
			modify:      func(c *Config) { c.Limits[0].DailyLimit = "lots" },
			expectedErr: errInvalidAmount,
		},
		{
			name:        "inconsistent limits",
			modify:      func(c *Config) { c.Limits[0].MaxPerTx = "5000" },
			expectedErr: tokenbridge.ErrInvalidLimits,
		},
		{
			name: "duplicate limits",
			modify: func(c *Config) {
				c.Limits = append(c.Limits, c.Limits[0])
			},
			expectedErr: errDuplicateLimits,
		},
		{
			name:        "unknown fee mode",
			modify:      func(c *Config) { c.Fees.Mode = "tithe" },
			expectedErr: tokenbridge.ErrValidation,
		},
		{
			name: "fee too high",
			modify: func(c *Config) {
				c.Fees = FeesConfig{Mode: "one-direction", HomeFee: "1000000000000000000"}
			},
			expectedErr: tokenbridge.ErrFeeTooHigh,
		},
		{
			name:        "stranger key",
			modify:      func(c *Config) { c.Validators = c.Validators[1:] },
			expectedErr: errUnknownValidator,
		},
		{
			name:        "malformed key",
			modify:      func(c *Config) { c.ValidatorKeys = []string{"0x1234"} },
			expectedErr: signer.ErrInvalidKey,
		},
		{
			name:        "empty cache",
			modify:      func(c *Config) { c.SignatureCacheSize = 0 },
			expectedErr: errInvalidCacheSize,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig(t)
			test.modify(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestFeesConfig(t *testing.T) {
	require := require.New(t)

	cfg := validConfig(t)
	cfg.Fees = FeesConfig{
		Mode:       "both-directions",
		HomeFee:    "10000000000000000",
		ForeignFee: "20000000000000000",
	}
	require.NoError(cfg.Validate())

	fee := cfg.FeeConfig()
	require.NotNil(fee)
	require.Equal(uint8(fees.BothDirections), fee.Kind)
	require.Equal(uint256.NewInt(10_000_000_000_000_000), fee.HomeFee)
	require.Equal(uint256.NewInt(20_000_000_000_000_000), fee.ForeignFee)
}

func TestNewConfigFromFile(t *testing.T) {
	require := require.New(t)

	file := validConfig(t)
	file.APIPort = 9650
	file.Relayer = RelayerConfig{Enabled: true}
	b, err := json.Marshal(file)
	require.NoError(err)

	path := filepath.Join(t.TempDir(), "bridge.json")
	require.NoError(os.WriteFile(path, b, 0o600))

	fs := BuildFlagSet()
	require.NoError(fs.Parse([]string{"--" + ConfigFileKey, path, "--" + LogLevelKey, "debug"}))
	v, err := BuildViper(fs)
	require.NoError(err)

	cfg, err := NewConfig(v)
	require.NoError(err)
	require.Equal(uint16(9650), cfg.APIPort)
	require.Equal("debug", cfg.LogLevel)
	require.Equal(MemDB, cfg.DBType)
	require.True(cfg.Relayer.Enabled)
	require.False(cfg.UserEndpoints)
	require.Equal(tokenbridge.ErcToErcMode, cfg.BridgeMode())
	require.Len(cfg.ValidatorSet(), 2)

	workers := cfg.RelayerWorkers()
	require.Equal(time.Second, workers.PollInterval)
}

func TestNewConfigYAML(t *testing.T) {
	require := require.New(t)

	const doc = `
mode: amb
owner: "0x4000000000000000000000000000000000000004"
required-signatures: 1
home:
  chain-id: 1
  address: "0x1000000000000000000000000000000000000001"
foreign:
  chain-id: 2
  address: "0x2000000000000000000000000000000000000002"
validators:
  - address: "0x8000000000000000000000000000000000000008"
relayer:
  poll-interval: 250ms
`
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("API_PORT", "7000")
	t.Setenv("USER_ENDPOINTS", "true")

	fs := BuildFlagSet()
	require.NoError(fs.Parse([]string{"--" + ConfigFileKey, path}))
	v, err := BuildViper(fs)
	require.NoError(err)

	cfg, err := NewConfig(v)
	require.NoError(err)
	require.Equal(tokenbridge.ArbitraryMessageMode, cfg.BridgeMode())
	require.Equal(uint16(7000), cfg.APIPort)
	require.True(cfg.UserEndpoints)
	require.Equal(250*time.Millisecond, cfg.RelayerWorkers().PollInterval)
	require.Empty(cfg.Signers())
}

func TestBuildViperMissingFile(t *testing.T) {
	fs := BuildFlagSet()
	require.NoError(t, fs.Parse([]string{"--" + ConfigFileKey, filepath.Join(t.TempDir(), "missing.json")}))
	_, err := BuildViper(fs)
	require.Error(t, err)
}
