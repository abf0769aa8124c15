// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge is the bridge core: it builds outbound messages, collects
// validator signatures and affirmations, and executes inbound transfers and
// calls exactly once under daily limits and fees.
//
// A Core serializes every command. Each command runs against a versioned
// layer over the database and is committed only if it succeeds, so rejected
// commands leave no trace.
package bridge

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/chain"
	"github.com/luxfi/tokenbridge/fees"
	"github.com/luxfi/tokenbridge/limits"
	"github.com/luxfi/tokenbridge/metrics"
	"github.com/luxfi/tokenbridge/outoflimit"
	"github.com/luxfi/tokenbridge/signatures"
	"github.com/luxfi/tokenbridge/signer"
	"github.com/luxfi/tokenbridge/state"
	"github.com/luxfi/tokenbridge/validators"
)

// Core manages one side of a bridge pair
type Core struct {
	mode          tokenbridge.Mode
	side          tokenbridge.Side
	chainID       *uint256.Int
	remoteChainID *uint256.Int
	address       common.Address
	remoteAddress common.Address
	asset         common.Address
	decimalShift  int

	builder    *tokenbridge.Builder
	db         database.Database
	validators validators.Set
	assets     chain.AssetTransfer
	calls      chain.ArbitraryCall
	clock      limits.Clock
	verifier   *signer.Verifier
	log        log.Logger
	metrics    *metrics.BridgeMetrics

	mu sync.RWMutex
}

// txn is the view of state a single command operates on. Events are appended
// to the store as part of the command and published after commit.
type txn struct {
	core      *Core
	store     *state.Store
	limits    *limits.Tracker
	collector *signatures.Collector
	ledger    *outoflimit.Ledger
	events    []*tokenbridge.Event
}

// New creates a core over cfg.DB, writing the genesis configuration if the
// database is empty
func New(cfg Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	builder, err := tokenbridge.NewBuilder(cfg.ChainID, cfg.Address)
	if err != nil {
		return nil, err
	}
	verifier, err := signer.NewVerifier(signer.DefaultRecoveryCacheSize)
	if err != nil {
		return nil, err
	}

	c := &Core{
		mode:          cfg.Mode,
		side:          cfg.Side,
		chainID:       new(uint256.Int).Set(cfg.ChainID),
		remoteChainID: new(uint256.Int).Set(cfg.RemoteChainID),
		address:       cfg.Address,
		remoteAddress: cfg.RemoteAddress,
		asset:         cfg.Asset,
		decimalShift:  cfg.DecimalShift,
		builder:       builder,
		db:            cfg.DB,
		validators:    cfg.Validators,
		assets:        cfg.Assets,
		calls:         cfg.Calls,
		clock:         cfg.Clock,
		verifier:      verifier,
		log:           cfg.Log,
		metrics:       cfg.Metrics,
	}
	if err := c.update("genesis", func(t *txn) error {
		return t.genesis(&cfg)
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize bridge state: %w", err)
	}

	bridgeID := builder.BridgeID()
	c.log.Info("Initialized bridge core",
		log.String("mode", c.mode.String()),
		log.Stringer("side", c.side),
		log.String("chainID", c.chainID.Dec()),
		log.String("remoteChainID", c.remoteChainID.Dec()),
		log.String("bridgeID", common.Bytes2Hex(bridgeID[:])),
	)
	return c, nil
}

func (t *txn) genesis(cfg *Config) error {
	owner, err := t.store.Owner()
	if err != nil {
		return err
	}
	if owner != (common.Address{}) {
		return nil
	}
	if err := t.store.SetOwner(cfg.Owner); err != nil {
		return err
	}
	if err := t.store.SetMaxGasPerTx(cfg.MaxGasPerTx); err != nil {
		return err
	}
	for asset, l := range cfg.Limits {
		if err := t.limits.SetLimits(asset, l); err != nil {
			return fmt.Errorf("limits of %s: %w", asset, err)
		}
	}
	if cfg.Fees != nil {
		if cfg.Side != tokenbridge.Home && fees.Kind(cfg.Fees.Kind) != fees.NoFee {
			return fmt.Errorf("%w: fees are charged on the home side", tokenbridge.ErrUnsupportedSide)
		}
		if _, err := fees.NewManager(cfg.Fees); err != nil {
			return err
		}
		return t.store.PutFeeConfig(cfg.Fees)
	}
	return nil
}

// update runs fn as one atomic command
func (c *Core) update(command string, fn func(t *txn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	vdb := versiondb.New(c.db)
	t, err := c.newTxn(vdb)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		vdb.Abort()
		c.rejected(command, err)
		return err
	}
	if err := vdb.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", command, err)
	}

	if c.metrics != nil {
		c.metrics.CommandApplied(command, c.side.String())
	}
	for _, e := range t.events {
		c.published(e)
	}
	return nil
}

func (c *Core) newTxn(db database.Database) (*txn, error) {
	store := state.New(db)
	tracker, err := limits.NewTracker(store, c.clock, c.decimalShift)
	if err != nil {
		return nil, err
	}
	return &txn{
		core:      c,
		store:     store,
		limits:    tracker,
		collector: signatures.New(store, c.validators, c.verifier),
		ledger:    outoflimit.New(store, tracker),
	}, nil
}

func (c *Core) rejected(command string, err error) {
	kind := tokenbridge.KindOf(err)
	if c.metrics != nil {
		c.metrics.CommandRejected(command, c.side.String(), kind.String())
	}
	if kind == tokenbridge.KindReplay {
		// expected when relayers race on the same attestation
		c.log.Debug("Rejected replayed command",
			log.String("command", command),
			log.Err(err),
		)
		return
	}
	c.log.Warn("Rejected command",
		log.String("command", command),
		log.Stringer("class", kind),
		log.Err(err),
	)
}

func (c *Core) published(e *tokenbridge.Event) {
	if c.metrics != nil {
		c.metrics.EventEmitted(e.Type.String(), c.side.String())
		switch e.Type {
		case tokenbridge.DownstreamCallFailed:
			c.metrics.DownstreamFailed()
		case tokenbridge.AmountLimitExceeded, tokenbridge.AssetAboveLimitsFixed:
			if total, err := state.New(c.db).OutOfLimitTotal(); err == nil {
				c.metrics.SetOutOfLimitValue(total.Float64())
			}
		}
	}
	c.log.Debug("Emitted event",
		log.Stringer("type", e.Type),
		log.Uint64("seq", e.Seq),
		log.Stringer("hash", e.Hash),
	)
}

// emit appends e to the event log
func (t *txn) emit(e *tokenbridge.Event) error {
	if err := t.store.AppendEvent(e); err != nil {
		return err
	}
	t.events = append(t.events, e)
	return nil
}

func (t *txn) onlyOwner(caller common.Address) error {
	owner, err := t.store.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return fmt.Errorf("%w: %s", tokenbridge.ErrNotOwner, caller)
	}
	return nil
}

func (c *Core) onlySide(side tokenbridge.Side, op string) error {
	if c.side != side {
		return fmt.Errorf("%w: %s on the %s side", tokenbridge.ErrUnsupportedSide, op, c.side)
	}
	return nil
}

func (c *Core) onlyTokenMode(op string) error {
	if !c.mode.IsToken() {
		return fmt.Errorf("%w: %s in %s", tokenbridge.ErrUnsupportedMode, op, c.mode)
	}
	return nil
}

func (c *Core) onlyMessageMode(op string) error {
	if c.mode != tokenbridge.ArbitraryMessageMode {
		return fmt.Errorf("%w: %s in %s", tokenbridge.ErrUnsupportedMode, op, c.mode)
	}
	return nil
}

func (c *Core) multiToken() bool {
	return c.mode == tokenbridge.MultiTokenMode
}

// assetOf resolves the asset a transfer moves on this chain
func (c *Core) assetOf(asset common.Address) common.Address {
	if c.multiToken() {
		return asset
	}
	return c.asset
}

// credit pays amount of asset to recipient through the asset capability
func (c *Core) credit(asset, recipient common.Address, amount *uint256.Int) bool {
	if asset == tokenbridge.NativeAsset {
		return c.assets.CreditNative(recipient, amount)
	}
	return c.assets.CreditToken(asset, recipient, amount)
}

// nextNonce allocates the next outbound nonce
func (t *txn) nextNonce() (uint64, error) {
	nonce, err := t.store.Nonce()
	if err != nil {
		return 0, err
	}
	return nonce, t.store.SetNonce(nonce + 1)
}

// nextTransactionHash identifies an outbound token transfer. It stands in for
// the hash of the user's transaction on a real chain.
func (t *txn) nextTransactionHash() (common.Hash, error) {
	nonce, err := t.nextNonce()
	if err != nil {
		return common.Hash{}, err
	}
	id := tokenbridge.NewMessageID(t.core.builder.BridgeID(), nonce)
	return tokenbridge.Keccak256(id[:]), nil
}

// Mode returns the bridge flavor
func (c *Core) Mode() tokenbridge.Mode {
	return c.mode
}

// Side returns the role of this core in its pair
func (c *Core) Side() tokenbridge.Side {
	return c.side
}

// ChainID returns the chain this core runs on
func (c *Core) ChainID() *uint256.Int {
	return new(uint256.Int).Set(c.chainID)
}

// BridgeID returns the prefix of every message id this core produces
func (c *Core) BridgeID() tokenbridge.BridgeID {
	return c.builder.BridgeID()
}
