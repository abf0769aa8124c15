// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/signatures"
)

// Source is an event log a worker follows
type Source interface {
	Events(after uint64, limit int) ([]*tokenbridge.Event, error)
}

// Home is the home side core as seen by relayers and validators
type Home interface {
	Source
	Mode() tokenbridge.Mode
	SubmitSignature(signer common.Address, sig, message []byte) (*signatures.Outcome, error)
	ExecuteAffirmation(validator common.Address, a *tokenbridge.Affirmation) (*signatures.Outcome, error)
	ExecuteMessageAffirmation(ctx context.Context, validator common.Address, message []byte) (*signatures.Outcome, error)
	Signatures(hash common.Hash) ([][]byte, error)
}

// Foreign is the foreign side core as seen by relayers
type Foreign interface {
	Source
	ExecuteSignatures(ctx context.Context, message []byte, sigs [][]byte) (*tokenbridge.Event, error)
}
