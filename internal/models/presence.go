// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package models

import "time"

// PresenceRecord is the authoritative per-user presence state.
//
// Invariant: Online == true implies ConnectionID != "". Going offline
// always stamps LastConnection. There is exactly one record per user;
// a second connection from the same user overwrites ConnectionID
// (last-writer-wins).
type PresenceRecord struct {
	UserID         string     `json:"user_id"`
	Online         bool       `json:"online"`
	LastConnection *time.Time `json:"last_connection"`
	ConnectionID   string     `json:"connection_id,omitempty"`
}

// PresenceStatus is the client-facing presence snapshot entry used in
// statusSync and userStatusChanged payloads.
type PresenceStatus struct {
	Online         bool       `json:"online"`
	LastConnection *time.Time `json:"last_connection"`
}

// Status returns the client-facing projection of the record.
func (p *PresenceRecord) Status() PresenceStatus {
	return PresenceStatus{Online: p.Online, LastConnection: p.LastConnection}
}
