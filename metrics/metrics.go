// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tokenbridge"

type BridgeMetrics struct {
	commandCount         *prometheus.CounterVec
	rejectedCommandCount *prometheus.CounterVec
	eventCount           *prometheus.CounterVec
	downstreamFailures   prometheus.Counter
	outOfLimitValue      prometheus.Gauge
}

func NewBridgeMetrics(registerer prometheus.Registerer) *BridgeMetrics {
	m := BridgeMetrics{
		commandCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_count",
				Help:      "Number of commands applied to the bridge state",
			},
			[]string{"command", "side"},
		),
		rejectedCommandCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_command_count",
				Help:      "Number of commands rejected, by error class",
			},
			[]string{"command", "side", "error_class"},
		),
		eventCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_count",
				Help:      "Number of events appended to the event log",
			},
			[]string{"event", "side"},
		),
		downstreamFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downstream_failure_count",
				Help:      "Number of asset transfers or calls that failed after quorum",
			},
		),
		outOfLimitValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "out_of_limit_value",
				Help:      "Remaining value held in the out-of-limit ledger, as a float approximation",
			},
		),
	}

	registerer.MustRegister(m.commandCount)
	registerer.MustRegister(m.rejectedCommandCount)
	registerer.MustRegister(m.eventCount)
	registerer.MustRegister(m.downstreamFailures)
	registerer.MustRegister(m.outOfLimitValue)

	return &m
}

// CommandApplied counts a committed command
func (m *BridgeMetrics) CommandApplied(command, side string) {
	m.commandCount.WithLabelValues(command, side).Inc()
}

// CommandRejected counts a command that left no state change
func (m *BridgeMetrics) CommandRejected(command, side, errorClass string) {
	m.rejectedCommandCount.WithLabelValues(command, side, errorClass).Inc()
}

func (m *BridgeMetrics) EventEmitted(event, side string) {
	m.eventCount.WithLabelValues(event, side).Inc()
}

func (m *BridgeMetrics) DownstreamFailed() {
	m.downstreamFailures.Inc()
}

func (m *BridgeMetrics) SetOutOfLimitValue(v float64) {
	m.outOfLimitValue.Set(v)
}
