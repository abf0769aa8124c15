// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer moves bridge events between the two sides of a pair. A
// Validator signs and affirms requests; a Relayer delivers collected messages
// to the foreign side.
package relayer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/log"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/tokenbridge"
)

const (
	DefaultPollInterval        = time.Second
	DefaultBatchSize           = 256
	DefaultMaxConcurrentEvents = 16
	DefaultRetryTimeout        = 30 * time.Second
)

// Config tunes how a worker follows its source
type Config struct {
	PollInterval        time.Duration
	BatchSize           int
	MaxConcurrentEvents int
	RetryTimeout        time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxConcurrentEvents <= 0 {
		c.MaxConcurrentEvents = DefaultMaxConcurrentEvents
	}
	if c.RetryTimeout <= 0 {
		c.RetryTimeout = DefaultRetryTimeout
	}
	return c
}

// handler processes one event. It returns false for events it does not act
// on.
type handler func(ctx context.Context, e *tokenbridge.Event) (bool, error)

// worker follows the event log of a source, handing every event to handle
// and checkpointing progress
type worker struct {
	name       string
	source     Source
	checkpoint *Checkpoint
	handle     handler
	cfg        Config
	log        log.Logger
	metrics    *RelayerMetrics
}

func newWorker(
	name string,
	source Source,
	db database.Database,
	handle handler,
	cfg Config,
	logger log.Logger,
	metrics *RelayerMetrics,
) (*worker, error) {
	checkpoint, err := NewCheckpoint(logger, prefixdb.New([]byte(name), db), name)
	if err != nil {
		return nil, err
	}
	return &worker{
		name:       name,
		source:     source,
		checkpoint: checkpoint,
		handle:     handle,
		cfg:        cfg.withDefaults(),
		log:        logger,
		metrics:    metrics,
	}, nil
}

// run polls until ctx is done
func (w *worker) run(ctx context.Context) error {
	w.log.Info("Starting worker",
		log.String("worker", w.name),
		log.Uint64("resumeAfter", w.checkpoint.Committed()),
	)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil {
			w.log.Warn("Failed to poll events",
				log.String("worker", w.name),
				log.Err(err),
			)
		}
		select {
		case <-ctx.Done():
			w.log.Info("Stopping worker", log.String("worker", w.name))
			return nil
		case <-ticker.C:
		}
	}
}

// poll processes every event after the checkpoint
func (w *worker) poll(ctx context.Context) error {
	for ctx.Err() == nil {
		events, err := w.source.Events(w.checkpoint.Committed(), w.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(w.cfg.MaxConcurrentEvents)
		for _, e := range events {
			eg.Go(func() error {
				if err := w.process(egCtx, e); err != nil {
					return err
				}
				w.checkpoint.Stage(e.Seq)
				return nil
			})
		}
		err = eg.Wait()
		if werr := w.checkpoint.Write(); werr != nil {
			return werr
		}
		w.metrics.committed(w.name, w.checkpoint.Committed())
		if err != nil {
			return err
		}
		if len(events) < w.cfg.BatchSize {
			return nil
		}
	}
	return nil
}

// process handles e with retries. Only cancellation is returned; events that
// cannot be delivered are logged and skipped.
func (w *worker) process(ctx context.Context, e *tokenbridge.Event) error {
	start := time.Now()
	var handled bool
	err := WithRetriesTimeout(ctx, w.log, func() error {
		var err error
		handled, err = w.handle(ctx, e)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, tokenbridge.ErrReplay):
			// another worker got there first
			w.log.Debug("Event already delivered",
				log.String("worker", w.name),
				log.Uint64("seq", e.Seq),
			)
			handled = false
			return nil
		case permanent(err):
			return backoff.Permanent(err)
		default:
			return err
		}
	}, w.cfg.RetryTimeout)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.metrics.failed(w.name, e.Type.String(), tokenbridge.KindOf(err).String())
		w.log.Error("Failed to deliver event",
			log.String("worker", w.name),
			log.Stringer("type", e.Type),
			log.Uint64("seq", e.Seq),
			log.Stringer("hash", e.Hash),
			log.Err(err),
		)
		return nil
	}
	if handled {
		w.metrics.delivered(w.name, e.Type.String(), float64(time.Since(start).Milliseconds()))
	}
	return nil
}

// permanent reports whether retrying err cannot succeed. Protocol errors are
// deterministic given state and input, except downstream failures.
func permanent(err error) bool {
	kind := tokenbridge.KindOf(err)
	return kind != 0 && kind != tokenbridge.KindDownstream
}
