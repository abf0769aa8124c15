// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/api"
	"github.com/luxfi/tokenbridge/bridge"
	"github.com/luxfi/tokenbridge/chain"
	"github.com/luxfi/tokenbridge/config"
	"github.com/luxfi/tokenbridge/metrics"
	"github.com/luxfi/tokenbridge/relayer"
	"github.com/luxfi/tokenbridge/validators"
)

const shutdownTimeout = 5 * time.Second

var (
	homePrefix    = []byte("home")
	foreignPrefix = []byte("foreign")
	relayerPrefix = []byte("relayer")
)

func serveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Runs the bridge daemon",
		RunE:  serveFunc,
	}
	c.Flags().AddFlagSet(config.BuildFlagSet())
	return c
}

func serveFunc(c *cobra.Command, _ []string) error {
	v, err := config.BuildViper(c.Flags())
	if err != nil {
		config.DisplayUsageText()
		return fmt.Errorf("couldn't configure flags: %w", err)
	}
	cfg, err := config.NewConfig(v)
	if err != nil {
		return fmt.Errorf("couldn't build config: %w", err)
	}

	var logger log.Logger
	if cfg.LogLevel == "off" {
		logger = log.NewNoOpLogger()
	} else {
		logger = log.NewLogger("bridged")
	}
	logger.Info("Initializing bridged",
		log.String("version", version),
		log.Stringer("mode", cfg.BridgeMode()),
	)

	ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(&cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", log.Err(err))
		}
	}()

	registry := prometheus.NewRegistry()
	bridgeMetrics := metrics.NewBridgeMetrics(registry)

	home, foreign, err := newCores(&cfg, db, logger, bridgeMetrics)
	if err != nil {
		return err
	}

	errGroup, ctx := errgroup.WithContext(ctx)

	if cfg.Relayer.Enabled {
		if err := startRelayers(ctx, errGroup, &cfg, home, foreign, db, logger, registry); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           api.NewHandler(logger, registry, api.Options{UserEndpoints: cfg.UserEndpoints}, home, foreign),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errGroup.Go(func() error {
		logger.Info("Starting API server", log.Int("port", int(cfg.APIPort)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		return nil
	})
	// Handle graceful shutdown
	errGroup.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("Initialization complete")
	if err := errGroup.Wait(); err != nil {
		logger.Error("Exited with error", log.Err(err))
		return err
	}
	logger.Info("Stopped bridged")
	return nil
}

func openDB(cfg *config.Config) (database.Database, error) {
	switch cfg.DBType {
	case config.BadgerDB:
		return badgerdb.New(cfg.DBPath, nil, "", nil)
	default:
		return memdb.New(), nil
	}
}

// newCores builds both sides of the pair over one database. The sides run
// against in-memory ledgers.
func newCores(
	cfg *config.Config,
	db database.Database,
	logger log.Logger,
	bridgeMetrics *metrics.BridgeMetrics,
) (*bridge.Core, *bridge.Core, error) {
	vdrs, err := validators.NewStatic(cfg.RequiredSignatures, cfg.ValidatorSet()...)
	if err != nil {
		return nil, nil, err
	}

	build := func(side tokenbridge.Side, local, remote config.SideConfig, prefix []byte) (*bridge.Core, error) {
		ledger := chain.NewMemoryChain()
		bcfg := bridge.Config{
			Mode:          cfg.BridgeMode(),
			Side:          side,
			ChainID:       local.ChainIDInt(),
			RemoteChainID: remote.ChainIDInt(),
			Address:       local.AddressValue(),
			RemoteAddress: remote.AddressValue(),
			Asset:         local.AssetValue(),
			DecimalShift:  cfg.DecimalShift,
			Owner:         cfg.OwnerAddress(),
			MaxGasPerTx:   local.MaxGasPerTx,
			Limits:        cfg.AssetLimits(),
			DB:            prefixdb.New(prefix, db),
			Validators:    vdrs,
			Log:           logger,
			Metrics:       bridgeMetrics,
		}
		if side == tokenbridge.Home {
			bcfg.Fees = cfg.FeeConfig()
		}
		if cfg.BridgeMode().IsToken() {
			bcfg.Assets = ledger
		} else {
			bcfg.Calls = ledger
		}
		core, err := bridge.New(bcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s core: %w", side, err)
		}
		return core, nil
	}

	home, err := build(tokenbridge.Home, cfg.Home, cfg.Foreign, homePrefix)
	if err != nil {
		return nil, nil, err
	}
	foreign, err := build(tokenbridge.Foreign, cfg.Foreign, cfg.Home, foreignPrefix)
	if err != nil {
		return nil, nil, err
	}
	return home, foreign, nil
}

func startRelayers(
	ctx context.Context,
	errGroup *errgroup.Group,
	cfg *config.Config,
	home, foreign *bridge.Core,
	db database.Database,
	logger log.Logger,
	registerer prometheus.Registerer,
) error {
	relayerDB := prefixdb.New(relayerPrefix, db)
	relayerMetrics := relayer.NewRelayerMetrics(registerer)
	workers := cfg.RelayerWorkers()

	r, err := relayer.NewRelayer(home, foreign, relayerDB, workers, logger, relayerMetrics)
	if err != nil {
		return fmt.Errorf("failed to create relayer: %w", err)
	}
	errGroup.Go(func() error {
		return r.Run(ctx)
	})

	for _, s := range cfg.Signers() {
		v, err := relayer.NewValidator(home, foreign, s, relayerDB, workers, logger, relayerMetrics)
		if err != nil {
			return fmt.Errorf("failed to create validator %s: %w", s.Address(), err)
		}
		logger.Info("Starting validator", log.Stringer("address", s.Address()))
		errGroup.Go(func() error {
			return v.Run(ctx)
		})
	}
	return nil
}
