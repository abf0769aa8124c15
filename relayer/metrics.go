// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type RelayerMetrics struct {
	successfulDeliveryCount *prometheus.CounterVec
	failedDeliveryCount     *prometheus.CounterVec
	deliveryLatencyMS       *prometheus.GaugeVec
	processedEventSeq       *prometheus.GaugeVec
}

func NewRelayerMetrics(registerer prometheus.Registerer) *RelayerMetrics {
	m := RelayerMetrics{
		successfulDeliveryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_delivery_count",
				Help: "Number of events delivered to the destination core",
			},
			[]string{"worker", "event"},
		),
		failedDeliveryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failed_delivery_count",
				Help: "Number of events that failed to deliver",
			},
			[]string{"worker", "event", "failure_reason"},
		),
		deliveryLatencyMS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "delivery_latency_ms",
				Help: "Latency of delivering an event in milliseconds",
			},
			[]string{"worker", "event"},
		),
		processedEventSeq: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "processed_event_seq",
				Help: "Sequence number of the last event committed by the worker",
			},
			[]string{"worker"},
		),
	}

	registerer.MustRegister(m.successfulDeliveryCount)
	registerer.MustRegister(m.failedDeliveryCount)
	registerer.MustRegister(m.deliveryLatencyMS)
	registerer.MustRegister(m.processedEventSeq)

	return &m
}

func (m *RelayerMetrics) delivered(worker, event string, latencyMS float64) {
	if m == nil {
		return
	}
	m.successfulDeliveryCount.WithLabelValues(worker, event).Inc()
	m.deliveryLatencyMS.WithLabelValues(worker, event).Set(latencyMS)
}

func (m *RelayerMetrics) failed(worker, event, reason string) {
	if m == nil {
		return
	}
	m.failedDeliveryCount.WithLabelValues(worker, event, reason).Inc()
}

func (m *RelayerMetrics) committed(worker string, seq uint64) {
	if m == nil {
		return
	}
	m.processedEventSeq.WithLabelValues(worker).Set(float64(seq))
}
