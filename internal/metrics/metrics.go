// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket sessions",
		},
	)

	WSEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_received_total",
			Help: "Total number of inbound client events",
		},
		[]string{"event"},
	)

	WSEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_sent_total",
			Help: "Total number of outbound events delivered to sessions",
		},
		[]string{"event"},
	)

	WSSendDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_send_drops_total",
			Help: "Total number of sessions disconnected because their send buffer filled",
		},
	)

	WSEventsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_events_throttled_total",
			Help: "Total number of inbound events rejected by the per-session rate limiter",
		},
	)

	// Messaging Metrics
	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_persisted_total",
			Help: "Total number of messages durably stored",
		},
	)

	MessagesBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_broadcast_total",
			Help: "Total number of messages fanned out to rooms",
		},
	)

	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rooms_active",
			Help: "Current number of rooms with at least one member",
		},
	)

	PresenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_transitions_total",
			Help: "Total number of presence state changes",
		},
		[]string{"state"}, // "online", "offline"
	)

	// Storage Metrics
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active HTTP requests.
func TrackActiveRequest(inc bool) {
	if inc {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// TrackConnection tracks WebSocket session lifecycle.
func TrackConnection(open bool) {
	if open {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}

// RecordEventReceived records an inbound client event.
func RecordEventReceived(event string) {
	WSEventsReceived.WithLabelValues(event).Inc()
}

// RecordEventSent records an outbound event delivered to a session.
func RecordEventSent(event string) {
	WSEventsSent.WithLabelValues(event).Inc()
}

// RecordSendDrop records a session disconnected for slow consumption.
func RecordSendDrop() {
	WSSendDrops.Inc()
}

// RecordEventThrottled records an inbound event rejected by rate limiting.
func RecordEventThrottled() {
	WSEventsThrottled.Inc()
}

// RecordMessagePersisted records a message reaching durable storage.
func RecordMessagePersisted() {
	MessagesPersisted.Inc()
}

// RecordMessageBroadcast records a message fanned out to a room.
func RecordMessageBroadcast() {
	MessagesBroadcast.Inc()
}

// RecordPresenceTransition records a presence state change.
func RecordPresenceTransition(online bool) {
	state := "offline"
	if online {
		state = "online"
	}
	PresenceTransitions.WithLabelValues(state).Inc()
}

// RecordStoreError records a failed store operation.
func RecordStoreError(operation string) {
	StoreErrors.WithLabelValues(operation).Inc()
}
