// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tokenbridge"
)

type fakeSource struct {
	events []*tokenbridge.Event
}

func (s *fakeSource) Events(after uint64, limit int) ([]*tokenbridge.Event, error) {
	var out []*tokenbridge.Event
	for _, e := range s.events {
		if e.Seq > after && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func newFakeSource(types ...tokenbridge.EventType) *fakeSource {
	s := &fakeSource{}
	for i, typ := range types {
		s.events = append(s.events, &tokenbridge.Event{Seq: uint64(i + 1), Type: typ})
	}
	return s
}

func TestWorkerPoll(t *testing.T) {
	errTransient := errors.New("transient")
	tests := []struct {
		name      string
		errs      map[uint64][]error
		calls     int
		delivered float64
		failed    float64
	}{
		{
			name:      "all delivered",
			calls:     4,
			delivered: 4,
		},
		{
			name: "replay counts as done",
			errs: map[uint64][]error{
				2: {tokenbridge.ErrAlreadyProcessed},
			},
			calls:     4,
			delivered: 3,
		},
		{
			name: "permanent failure is skipped",
			errs: map[uint64][]error{
				3: {tokenbridge.ErrNotAValidator},
			},
			calls:     4,
			delivered: 3,
			failed:    1,
		},
		{
			name: "transient failure is retried",
			errs: map[uint64][]error{
				1: {errTransient, tokenbridge.ErrCallFailed},
			},
			calls:     6,
			delivered: 4,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			var (
				lock  sync.Mutex
				calls = make(map[uint64]int)
			)
			handle := func(_ context.Context, e *tokenbridge.Event) (bool, error) {
				lock.Lock()
				defer lock.Unlock()

				n := calls[e.Seq]
				calls[e.Seq]++
				if errs := test.errs[e.Seq]; n < len(errs) {
					return false, errs[n]
				}
				return true, nil
			}

			registry := prometheus.NewRegistry()
			metrics := NewRelayerMetrics(registry)
			db := memdb.New()
			source := newFakeSource(
				tokenbridge.UserRequestForSignature,
				tokenbridge.UserRequestForSignature,
				tokenbridge.UserRequestForSignature,
				tokenbridge.UserRequestForSignature,
			)
			w, err := newWorker("test", source, db, handle, Config{
				BatchSize:    3,
				RetryTimeout: 5 * time.Second,
			}, log.NewNoOpLogger(), metrics)
			require.NoError(err)

			require.NoError(w.poll(context.Background()))
			require.Equal(uint64(4), w.checkpoint.Committed())
			event := tokenbridge.UserRequestForSignature.String()
			require.Equal(test.delivered, testutil.ToFloat64(metrics.successfulDeliveryCount.WithLabelValues("test", event)))
			require.Equal(test.failed, testutil.ToFloat64(metrics.failedDeliveryCount.WithLabelValues("test", event, "authorization")))
			require.Equal(float64(4), testutil.ToFloat64(metrics.processedEventSeq.WithLabelValues("test")))

			// a second poll finds nothing new
			require.NoError(w.poll(context.Background()))
			lock.Lock()
			total := 0
			for _, n := range calls {
				total += n
			}
			lock.Unlock()
			require.Equal(test.calls, total)

			// a fresh worker resumes from the stored checkpoint
			resumed, err := newWorker("test", source, db, handle, Config{}, log.NewNoOpLogger(), nil)
			require.NoError(err)
			require.Equal(uint64(4), resumed.checkpoint.Committed())
		})
	}
}

func TestWorkerSkipsUnhandledEvents(t *testing.T) {
	require := require.New(t)

	registry := prometheus.NewRegistry()
	metrics := NewRelayerMetrics(registry)
	source := newFakeSource(
		tokenbridge.LimitsChanged,
		tokenbridge.CollectedSignatures,
	)
	handle := func(_ context.Context, e *tokenbridge.Event) (bool, error) {
		return e.Type == tokenbridge.CollectedSignatures, nil
	}
	w, err := newWorker("test", source, memdb.New(), handle, Config{}, log.NewNoOpLogger(), metrics)
	require.NoError(err)

	require.NoError(w.poll(context.Background()))
	require.Equal(uint64(2), w.checkpoint.Committed())
	require.Equal(float64(1), testutil.ToFloat64(metrics.successfulDeliveryCount.WithLabelValues("test", tokenbridge.CollectedSignatures.String())))
}

func TestWorkerRunStops(t *testing.T) {
	require := require.New(t)

	handle := func(context.Context, *tokenbridge.Event) (bool, error) {
		return true, nil
	}
	w, err := newWorker("test", newFakeSource(), memdb.New(), handle, Config{
		PollInterval: time.Millisecond,
	}, log.NewNoOpLogger(), nil)
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- w.run(ctx)
	}()
	cancel()
	require.NoError(<-done)
}

func TestPermanent(t *testing.T) {
	require := require.New(t)

	require.False(permanent(errors.New("network")))
	require.False(permanent(tokenbridge.ErrCallFailed))
	require.True(permanent(tokenbridge.ErrInvalidSignature))
	require.True(permanent(tokenbridge.ErrNotAValidator))
	require.True(permanent(tokenbridge.ErrDailyLimitExceeded))
}
