// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

// Package api provides the HTTP surface: REST handlers for accounts,
// conversations and message history, the websocket upgrade endpoint,
// and the Chi router that wires middleware, CORS, rate limiting and
// Prometheus instrumentation around them.
//
// Mutating operations that must fan out to connected clients (mark
// read, delete message) go through the realtime pipeline rather than
// the store directly, so REST and socket mutations broadcast the same
// events through the same authorization boundary.
package api
