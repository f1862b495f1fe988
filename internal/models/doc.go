// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

// Package models defines the shared data types for Parley: users,
// conversations, messages, read receipts, presence records, and the REST
// response envelope.
//
// Types here are plain data with small helper methods. Persistence lives
// in internal/store; realtime semantics live in internal/realtime.
package models
