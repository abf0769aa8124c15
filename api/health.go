// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"

	"github.com/luxfi/tokenbridge/bridge"
)

const healthCheckTimeout = 5 * time.Second

// NewHealthHandler reports the daemon healthy while every core can read its
// state
func NewHealthHandler(cores ...*bridge.Core) http.Handler {
	opts := []health.CheckerOption{
		health.WithTimeout(healthCheckTimeout),
	}
	for _, core := range cores {
		opts = append(opts, health.WithCheck(health.Check{
			Name:  fmt.Sprintf("bridge-%s-health", core.Side()),
			Check: coreCheck(core),
		}))
	}
	return health.NewHandler(health.NewChecker(opts...))
}

func coreCheck(core *bridge.Core) func(context.Context) error {
	return func(context.Context) error {
		_, err := core.Nonce()
		return err
	}
}
