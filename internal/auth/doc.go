// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

// Package auth implements the authentication gate: bcrypt password
// hashing, HS256 JWT issuance and validation, and the HTTP middleware
// that resolves a request's bearer token to an Identity.
//
// Every authenticated surface (REST and the WebSocket upgrade) goes
// through ValidateToken before any other work happens. WebSocket clients
// that cannot set an Authorization header pass the token as a "token"
// query parameter instead.
package auth
