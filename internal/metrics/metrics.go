// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package metrics exposes Prometheus instrumentation for the RangeFlow
// server. Metrics are served at /metrics in Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"method", "endpoint"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently connected WebSocket clients",
	})

	notesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notes_sent_total",
		Help: "Notes sent between ranges",
	})

	pushDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "push_deliveries_total",
		Help: "Web Push delivery attempts",
	}, []string{"outcome"})
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		httpRequestsInFlight.Inc()
	} else {
		httpRequestsInFlight.Dec()
	}
}

// TrackWebSocketConnection adjusts the connected client gauge.
func TrackWebSocketConnection(connected bool) {
	if connected {
		websocketConnections.Inc()
	} else {
		websocketConnections.Dec()
	}
}

// RecordNoteSent counts one sent note.
func RecordNoteSent() {
	notesSentTotal.Inc()
}

// RecordPushDelivery counts one push attempt by outcome: "delivered",
// "failed", or "pruned".
func RecordPushDelivery(outcome string) {
	pushDeliveriesTotal.WithLabelValues(outcome).Inc()
}
