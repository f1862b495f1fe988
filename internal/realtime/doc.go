// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

/*
Package realtime implements the WebSocket messaging core: sessions, the
room registry, presence, and the message pipeline.

# Architecture

Each accepted WebSocket connection becomes a Session with a read pump
and a write pump. The read pump decodes one client frame at a time and
dispatches it inline, which gives per-session ordering for free: a
client's sendMessage cannot overtake its earlier joinChat. The write
pump drains a buffered send channel and keeps the connection alive with
periodic pings.

The Registry maps room ids (conversation ids) to member sessions and
user ids to their sessions, sharded to keep lock contention local. All
registry locks are short critical sections around map mutation; no lock
is ever held across network or storage I/O.

Message flow for sendMessage:

 1. Authorization: the sender must be a participant of the conversation.
 2. Persistence: the message is durably stored and the conversation's
    last-message pointer updated.
 3. Fan-out: the stored message is broadcast to every session in the
    room, including the sender's own sessions, with the client's
    correlation token echoed back.

A broadcast never blocks on a slow consumer: if a session's send buffer
is full the event is dropped for that session and the session is torn
down, on the grounds that a client that cannot keep up must reconnect
and resync.

# Presence

Presence is stored durably so last-seen timestamps survive restarts.
Each session stamps itself as the owning connection when it comes
online; teardown only clears presence when it still owns the record,
so a user's newer connection is not knocked offline by an older one's
delayed disconnect.
*/
package realtime
