// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"

	"github.com/luxfi/database"
	"github.com/luxfi/log"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/signatures"
	"github.com/luxfi/tokenbridge/signer"
)

// Validator is the off-chain process of one bridge validator. It signs
// requests emitted on the home side and affirms requests emitted on the
// foreign side, both against the home core.
type Validator struct {
	home   Home
	signer signer.Signer
	log    log.Logger

	signatures   *worker
	affirmations *worker
}

// NewValidator returns a validator signing with s. Each of its two workers
// keeps its own checkpoint in db.
func NewValidator(
	home Home,
	foreign Source,
	s signer.Signer,
	db database.Database,
	cfg Config,
	logger log.Logger,
	metrics *RelayerMetrics,
) (*Validator, error) {
	v := &Validator{
		home:   home,
		signer: s,
		log:    logger,
	}
	prefix := s.Address().Hex()

	var err error
	v.signatures, err = newWorker(prefix+"/signatures", home, db, v.sign, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	v.affirmations, err = newWorker(prefix+"/affirmations", foreign, db, v.affirm, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Run follows both sides until ctx is done
func (v *Validator) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return v.signatures.run(ctx)
	})
	eg.Go(func() error {
		return v.affirmations.run(ctx)
	})
	return eg.Wait()
}

func (v *Validator) sign(_ context.Context, e *tokenbridge.Event) (bool, error) {
	if e.Type != tokenbridge.UserRequestForSignature {
		return false, nil
	}
	sig, err := v.signer.Sign(e.Data)
	if err != nil {
		return false, err
	}
	outcome, err := v.home.SubmitSignature(v.signer.Address(), sig, e.Data)
	if err != nil {
		return false, err
	}
	v.log.Debug("Signed user request",
		log.Stringer("hash", e.Hash),
		log.Stringer("status", outcome.Status),
	)
	return true, nil
}

func (v *Validator) affirm(ctx context.Context, e *tokenbridge.Event) (bool, error) {
	if e.Type != tokenbridge.UserRequestForAffirmation {
		return false, nil
	}

	var (
		outcome *signatures.Outcome
		err     error
	)
	if v.home.Mode().IsToken() {
		outcome, err = v.home.ExecuteAffirmation(v.signer.Address(), &tokenbridge.Affirmation{
			Asset:           e.Asset,
			Recipient:       e.Recipient,
			Value:           e.Value,
			TransactionHash: e.TransactionHash,
		})
	} else {
		outcome, err = v.home.ExecuteMessageAffirmation(ctx, v.signer.Address(), e.Data)
	}
	if err != nil {
		return false, err
	}
	v.log.Debug("Affirmed user request",
		log.Stringer("hash", e.Hash),
		log.Stringer("status", outcome.Status),
	)
	return true, nil
}
