// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

// Package middleware provides HTTP middleware shared across the REST
// surface: request ID propagation and Prometheus instrumentation.
// CORS and rate limiting come from go-chi/cors and go-chi/httprate and
// are wired directly in the router.
package middleware
