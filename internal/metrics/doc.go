// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

/*
Package metrics provides Prometheus metrics collection and export.

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:4280/metrics

Instrumented areas:

HTTP metrics:
  - http_requests_total: Total HTTP requests (counter)
    Labels: method, endpoint, status_code
  - http_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - http_active_requests: Active requests (gauge)

WebSocket metrics:
  - websocket_connections: Active realtime sessions (gauge)
  - websocket_events_received_total: Inbound client events (counter)
    Labels: event
  - websocket_events_sent_total: Outbound events delivered (counter)
    Labels: event
  - websocket_send_drops_total: Sessions disconnected for slow
    consumption (counter)
  - websocket_events_throttled_total: Inbound events rejected by the
    per-session rate limiter (counter)

Messaging metrics:
  - messages_persisted_total: Messages durably stored (counter)
  - messages_broadcast_total: Messages fanned out to rooms (counter)
  - rooms_active: Rooms with at least one member (gauge)
  - presence_transitions_total: Presence state changes (counter)
    Labels: state (online, offline)

Storage metrics:
  - store_errors_total: Failed store operations (counter)
    Labels: operation

Endpoint labels are route patterns, never raw paths, so cardinality
stays bounded. All recording functions are safe for concurrent use.
*/
package metrics
