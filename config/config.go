// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the bridge daemon configuration from flags, a config
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/limits"
	"github.com/luxfi/tokenbridge/relayer"
	"github.com/luxfi/tokenbridge/signer"
	"github.com/luxfi/tokenbridge/state"
	"github.com/luxfi/tokenbridge/validators"
)

const (
	MemDB    = "memdb"
	BadgerDB = "badgerdb"

	defaultLogLevel           = "info"
	defaultAPIPort            = uint16(8080)
	defaultDBType             = MemDB
	DefaultSignatureCacheSize = uint64(1024 * 1024)
)

var (
	errNoValidators     = errors.New("no validators configured")
	errUnknownDBType    = errors.New("unknown db type")
	errMissingDBPath    = errors.New("db path required")
	errUnknownLogLevel  = errors.New("unknown log level")
	errInvalidAddress   = errors.New("invalid address")
	errInvalidAmount    = errors.New("invalid amount")
	errUnknownValidator = errors.New("validator key does not belong to a configured validator")
	errInvalidCacheSize = errors.New("signature cache size must be positive")
	errDuplicateLimits  = errors.New("duplicate limits for asset")
)

var logLevels = map[string]struct{}{
	"trace": {},
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
	"off":   {},
}

// SideConfig describes one deployment of the bridge pair
type SideConfig struct {
	ChainID     uint64 `mapstructure:"chain-id" json:"chain-id"`
	Address     string `mapstructure:"address" json:"address"`
	Asset       string `mapstructure:"asset" json:"asset"`
	MaxGasPerTx uint32 `mapstructure:"max-gas-per-tx" json:"max-gas-per-tx"`
}

// ValidatorConfig is a member of the validator set
type ValidatorConfig struct {
	Address       string `mapstructure:"address" json:"address"`
	RewardAddress string `mapstructure:"reward-address" json:"reward-address"`
}

// LimitsConfig holds the limits of one asset as decimal strings. The zero
// address is the native coin.
type LimitsConfig struct {
	Asset               string `mapstructure:"asset" json:"asset"`
	DailyLimit          string `mapstructure:"daily-limit" json:"daily-limit"`
	MaxPerTx            string `mapstructure:"max-per-tx" json:"max-per-tx"`
	MinPerTx            string `mapstructure:"min-per-tx" json:"min-per-tx"`
	ExecutionDailyLimit string `mapstructure:"execution-daily-limit" json:"execution-daily-limit"`
	ExecutionMaxPerTx   string `mapstructure:"execution-max-per-tx" json:"execution-max-per-tx"`
}

// FeesConfig selects the fee manager of the home side. Fees are fractions of
// 1e18 given as decimal strings.
type FeesConfig struct {
	Mode       string `mapstructure:"mode" json:"mode"`
	HomeFee    string `mapstructure:"home-fee" json:"home-fee"`
	ForeignFee string `mapstructure:"foreign-fee" json:"foreign-fee"`
}

// RelayerConfig tunes the local validator and relayer workers
type RelayerConfig struct {
	Enabled             bool          `mapstructure:"enabled" json:"enabled"`
	PollInterval        time.Duration `mapstructure:"poll-interval" json:"poll-interval,omitempty"`
	BatchSize           int           `mapstructure:"batch-size" json:"batch-size,omitempty"`
	MaxConcurrentEvents int           `mapstructure:"max-concurrent-events" json:"max-concurrent-events,omitempty"`
	RetryTimeout        time.Duration `mapstructure:"retry-timeout" json:"retry-timeout,omitempty"`
}

// Config is the bridge daemon configuration
type Config struct {
	LogLevel           string            `mapstructure:"log-level" json:"log-level"`
	APIPort            uint16            `mapstructure:"api-port" json:"api-port"`
	DBType             string            `mapstructure:"db-type" json:"db-type"`
	DBPath             string            `mapstructure:"db-path" json:"db-path"`
	Mode               string            `mapstructure:"mode" json:"mode"`
	Owner              string            `mapstructure:"owner" json:"owner"`
	DecimalShift       int               `mapstructure:"decimal-shift" json:"decimal-shift"`
	RequiredSignatures uint64            `mapstructure:"required-signatures" json:"required-signatures"`
	SignatureCacheSize uint64            `mapstructure:"signature-cache-size" json:"signature-cache-size"`
	UserEndpoints      bool              `mapstructure:"user-endpoints" json:"user-endpoints"`
	Home               SideConfig        `mapstructure:"home" json:"home"`
	Foreign            SideConfig        `mapstructure:"foreign" json:"foreign"`
	Validators         []ValidatorConfig `mapstructure:"validators" json:"validators"`
	Limits             []LimitsConfig    `mapstructure:"limits" json:"limits"`
	Fees               FeesConfig        `mapstructure:"fees" json:"fees"`
	// ValidatorKeys are hex secp256k1 keys of validators run by this daemon
	ValidatorKeys []string      `mapstructure:"validator-keys" json:"validator-keys"`
	Relayer       RelayerConfig `mapstructure:"relayer" json:"relayer"`

	// parsed
	mode       tokenbridge.Mode
	owner      common.Address
	validators []validators.Validator
	limits     map[common.Address]*state.Limits
	fees       *state.FeeConfig
	signers    []*signer.LocalSigner
}

// Validate checks the configuration and parses its typed values
func (c *Config) Validate() error {
	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, c.LogLevel)
	}
	switch c.DBType {
	case MemDB:
	case BadgerDB:
		if c.DBPath == "" {
			return errMissingDBPath
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownDBType, c.DBType)
	}
	if c.SignatureCacheSize == 0 {
		return errInvalidCacheSize
	}

	var err error
	if c.mode, err = tokenbridge.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.owner, err = parseAddress(OwnerKey, c.Owner); err != nil {
		return err
	}
	if c.owner == (common.Address{}) {
		return fmt.Errorf("%w: %s", tokenbridge.ErrZeroAddress, OwnerKey)
	}
	if err := limits.ValidateDecimalShift(c.DecimalShift); err != nil {
		return err
	}
	if err := c.Home.validate("home"); err != nil {
		return err
	}
	if err := c.Foreign.validate("foreign"); err != nil {
		return err
	}
	if c.Home.ChainID == c.Foreign.ChainID {
		return fmt.Errorf("%w: both sides on chain %d", tokenbridge.ErrInvalidChainID, c.Home.ChainID)
	}

	if len(c.Validators) == 0 {
		return errNoValidators
	}
	c.validators = make([]validators.Validator, len(c.Validators))
	for i, v := range c.Validators {
		addr, err := parseAddress("validator address", v.Address)
		if err != nil {
			return err
		}
		reward := addr
		if v.RewardAddress != "" {
			if reward, err = parseAddress("validator reward address", v.RewardAddress); err != nil {
				return err
			}
		}
		c.validators[i] = validators.Validator{Address: addr, RewardAddress: reward}
	}
	if _, err := validators.NewStatic(c.RequiredSignatures, c.validators...); err != nil {
		return err
	}

	c.limits = make(map[common.Address]*state.Limits, len(c.Limits))
	for _, l := range c.Limits {
		asset, parsed, err := l.parse()
		if err != nil {
			return err
		}
		if _, ok := c.limits[asset]; ok {
			return fmt.Errorf("%w: %s", errDuplicateLimits, asset)
		}
		c.limits[asset] = parsed
	}

	if c.fees, err = c.Fees.parse(); err != nil {
		return err
	}

	c.signers = make([]*signer.LocalSigner, len(c.ValidatorKeys))
	for i, key := range c.ValidatorKeys {
		s, err := signer.NewLocalSignerFromHex(key)
		if err != nil {
			return fmt.Errorf("validator key %d: %w", i, err)
		}
		if !c.isValidator(s.Address()) {
			return fmt.Errorf("%w: %s", errUnknownValidator, s.Address())
		}
		c.signers[i] = s
	}
	return nil
}

func (c *Config) isValidator(addr common.Address) bool {
	for _, v := range c.validators {
		if v.Address == addr {
			return true
		}
	}
	return false
}

// BridgeMode returns the parsed bridge mode
func (c *Config) BridgeMode() tokenbridge.Mode {
	return c.mode
}

// OwnerAddress returns the parsed owner address
func (c *Config) OwnerAddress() common.Address {
	return c.owner
}

// ValidatorSet returns the parsed members of the validator set
func (c *Config) ValidatorSet() []validators.Validator {
	return c.validators
}

// AssetLimits returns the parsed genesis limits per asset
func (c *Config) AssetLimits() map[common.Address]*state.Limits {
	return c.limits
}

// FeeConfig returns the parsed genesis fee configuration, or nil if none is
// configured
func (c *Config) FeeConfig() *state.FeeConfig {
	return c.fees
}

// Signers returns the local validator signers
func (c *Config) Signers() []*signer.LocalSigner {
	return c.signers
}

// RelayerWorkers returns the worker configuration of the relayer processes
func (c *Config) RelayerWorkers() relayer.Config {
	return relayer.Config{
		PollInterval:        c.Relayer.PollInterval,
		BatchSize:           c.Relayer.BatchSize,
		MaxConcurrentEvents: c.Relayer.MaxConcurrentEvents,
		RetryTimeout:        c.Relayer.RetryTimeout,
	}
}

func (s *SideConfig) validate(name string) error {
	if s.ChainID == 0 {
		return fmt.Errorf("%w: %s chain id must be non-zero", tokenbridge.ErrInvalidChainID, name)
	}
	if _, err := parseAddress(name+" address", s.Address); err != nil {
		return err
	}
	if s.Asset != "" {
		if _, err := parseAddress(name+" asset", s.Asset); err != nil {
			return err
		}
	}
	if s.MaxGasPerTx != 0 && s.MaxGasPerTx < tokenbridge.MinimumGasUsage {
		return fmt.Errorf("%w: %s max gas per tx %d", tokenbridge.ErrGasOutOfBounds, name, s.MaxGasPerTx)
	}
	return nil
}

// ChainIDInt returns the chain id as a uint256
func (s *SideConfig) ChainIDInt() *uint256.Int {
	return uint256.NewInt(s.ChainID)
}

// AddressValue returns the parsed deployment address
func (s *SideConfig) AddressValue() common.Address {
	return common.HexToAddress(s.Address)
}

// AssetValue returns the parsed asset address; empty is the native coin
func (s *SideConfig) AssetValue() common.Address {
	if s.Asset == "" {
		return common.Address{}
	}
	return common.HexToAddress(s.Asset)
}

func (l *LimitsConfig) parse() (common.Address, *state.Limits, error) {
	var asset common.Address
	if l.Asset != "" {
		var err error
		if asset, err = parseAddress("limits asset", l.Asset); err != nil {
			return asset, nil, err
		}
	}
	parsed := &state.Limits{}
	for _, f := range []struct {
		name  string
		value string
		dst   **uint256.Int
	}{
		{"daily-limit", l.DailyLimit, &parsed.DailyLimit},
		{"max-per-tx", l.MaxPerTx, &parsed.MaxPerTx},
		{"min-per-tx", l.MinPerTx, &parsed.MinPerTx},
		{"execution-daily-limit", l.ExecutionDailyLimit, &parsed.ExecutionDailyLimit},
		{"execution-max-per-tx", l.ExecutionMaxPerTx, &parsed.ExecutionMaxPerTx},
	} {
		v, err := parseAmount(f.name, f.value)
		if err != nil {
			return asset, nil, err
		}
		*f.dst = v
	}
	if err := limits.Validate(parsed); err != nil {
		return asset, nil, fmt.Errorf("limits of %s: %w", asset, err)
	}
	return asset, parsed, nil
}

func (f *FeesConfig) parse() (*state.FeeConfig, error) {
	if f.Mode == "" {
		return nil, nil
	}
	kind, err := fees.ParseKind(f.Mode)
	if err != nil {
		return nil, err
	}
	homeFee, err := parseAmount("home-fee", f.HomeFee)
	if err != nil {
		return nil, err
	}
	foreignFee, err := parseAmount("foreign-fee", f.ForeignFee)
	if err != nil {
		return nil, err
	}
	cfg := &state.FeeConfig{
		Kind:       uint8(kind),
		HomeFee:    homeFee,
		ForeignFee: foreignFee,
	}
	if _, err := fees.NewManager(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %s %q", errInvalidAddress, name, s)
	}
	return common.HexToAddress(s), nil
}

// parseAmount parses a decimal amount; empty is zero
func parseAmount(name, s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", errInvalidAmount, name, s, err)
	}
	return v, nil
}
