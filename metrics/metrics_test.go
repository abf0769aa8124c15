// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestBridgeMetrics(t *testing.T) {
	require := require.New(t)
	registry := prometheus.NewRegistry()
	m := NewBridgeMetrics(registry)

	m.CommandApplied("submit_signature", "home")
	m.CommandApplied("submit_signature", "home")
	m.CommandRejected("submit_signature", "home", "replay")
	m.EventEmitted("CollectedSignatures", "home")
	m.DownstreamFailed()
	m.SetOutOfLimitValue(42)

	require.InDelta(2, testutil.ToFloat64(m.commandCount.WithLabelValues("submit_signature", "home")), 0)
	require.InDelta(1, testutil.ToFloat64(m.rejectedCommandCount.WithLabelValues("submit_signature", "home", "replay")), 0)
	require.InDelta(1, testutil.ToFloat64(m.eventCount.WithLabelValues("CollectedSignatures", "home")), 0)
	require.InDelta(1, testutil.ToFloat64(m.downstreamFailures), 0)
	require.InDelta(42, testutil.ToFloat64(m.outOfLimitValue), 0)

	// registering twice on the same registry panics
	require.Panics(func() {
		NewBridgeMetrics(registry)
	})
}
