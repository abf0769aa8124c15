// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/cache"
)

const deliveredCacheSize = 4096

// Relayer carries messages collected on the home side to the foreign side
type Relayer struct {
	home      Home
	foreign   Foreign
	worker    *worker
	log       log.Logger
	delivered *cache.LRUCache[ids.ID, struct{}]
}

// NewRelayer returns a relayer resuming from the checkpoint stored in db
func NewRelayer(
	home Home,
	foreign Foreign,
	db database.Database,
	cfg Config,
	logger log.Logger,
	metrics *RelayerMetrics,
) (*Relayer, error) {
	delivered, err := cache.NewLRUCache[ids.ID, struct{}](deliveredCacheSize)
	if err != nil {
		return nil, err
	}
	r := &Relayer{
		home:      home,
		foreign:   foreign,
		log:       logger,
		delivered: delivered,
	}
	r.worker, err = newWorker("relayer", home, db, r.relay, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Run delivers collected messages until ctx is done
func (r *Relayer) Run(ctx context.Context) error {
	return r.worker.run(ctx)
}

func (r *Relayer) relay(ctx context.Context, e *tokenbridge.Event) (bool, error) {
	if e.Type != tokenbridge.CollectedSignatures {
		return false, nil
	}
	key := ids.ID(hash.ComputeHash256Array(e.Data))
	if r.delivered.Contains(key) {
		return false, nil
	}

	sigs, err := r.home.Signatures(e.Hash)
	if err != nil {
		return false, err
	}
	relayed, err := r.foreign.ExecuteSignatures(ctx, e.Data, sigs)
	if err != nil {
		return false, err
	}
	r.delivered.Put(key, struct{}{})
	r.log.Info("Relayed collected message",
		log.Stringer("hash", e.Hash),
		log.Stringer("responsible", e.Responsible),
		log.Bool("success", relayed.Status),
	)
	return true, nil
}
