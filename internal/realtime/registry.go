// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package realtime

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/metrics"
)

// registryShards bounds lock contention: room and user maps are split
// across independent shards keyed by id hash.
const registryShards = 32

// Registry tracks which sessions are members of which rooms, and which
// sessions belong to each user. Mutations take only the owning shard's
// lock, and never hold it across a channel send or any I/O: broadcasts
// snapshot the member list under a read lock and enqueue after release.
type Registry struct {
	closed atomic.Bool
	rooms  [registryShards]roomShard
	users  [registryShards]userShard
}

type roomShard struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

type userShard struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.rooms {
		r.rooms[i].rooms = make(map[string]map[*Session]struct{})
	}
	for i := range r.users {
		r.users[i].sessions = make(map[string]map[*Session]struct{})
	}
	return r
}

func shardIndex(key string) int {
	h := fnv.New32a()
	//nolint:errcheck // fnv writes never fail
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % registryShards)
}

// Close marks the registry as shutting down. Subsequent joins and
// registrations fail with ErrRegistryClosed; existing members can
// still be drained and torn down.
func (r *Registry) Close() {
	r.closed.Store(true)
}

// RegisterSession adds a session to its user's session set.
func (r *Registry) RegisterSession(s *Session) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}

	shard := &r.users[shardIndex(s.UserID())]
	shard.mu.Lock()
	set, ok := shard.sessions[s.UserID()]
	if !ok {
		set = make(map[*Session]struct{})
		shard.sessions[s.UserID()] = set
	}
	set[s] = struct{}{}
	shard.mu.Unlock()

	return nil
}

// UnregisterSession removes a session from its user's session set.
// Idempotent.
func (r *Registry) UnregisterSession(s *Session) {
	shard := &r.users[shardIndex(s.UserID())]
	shard.mu.Lock()
	if set, ok := shard.sessions[s.UserID()]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(shard.sessions, s.UserID())
		}
	}
	shard.mu.Unlock()
}

// Join adds a session to a room, creating the room on first member.
func (r *Registry) Join(roomID string, s *Session) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}

	shard := &r.rooms[shardIndex(roomID)]
	shard.mu.Lock()
	members, ok := shard.rooms[roomID]
	if !ok {
		members = make(map[*Session]struct{})
		shard.rooms[roomID] = members
		metrics.RoomsActive.Inc()
	}
	members[s] = struct{}{}
	shard.mu.Unlock()

	s.trackRoom(roomID)
	return nil
}

// Leave removes a session from a room. The room is dropped when its
// last member leaves. Idempotent.
func (r *Registry) Leave(roomID string, s *Session) {
	shard := &r.rooms[shardIndex(roomID)]
	shard.mu.Lock()
	if members, ok := shard.rooms[roomID]; ok {
		if _, member := members[s]; member {
			delete(members, s)
			if len(members) == 0 {
				delete(shard.rooms, roomID)
				metrics.RoomsActive.Dec()
			}
		}
	}
	shard.mu.Unlock()

	s.untrackRoom(roomID)
}

// LeaveAll removes the session from every room it joined.
func (r *Registry) LeaveAll(s *Session) {
	for _, roomID := range s.roomSnapshot() {
		r.Leave(roomID, s)
	}
}

// RoomMembers returns a stable-ordered snapshot of a room's sessions.
func (r *Registry) RoomMembers(roomID string) []*Session {
	shard := &r.rooms[shardIndex(roomID)]
	shard.mu.RLock()
	members := make([]*Session, 0, len(shard.rooms[roomID]))
	for s := range shard.rooms[roomID] {
		members = append(members, s)
	}
	shard.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool { return members[i].ID() < members[j].ID() })
	return members
}

// UserSessions returns a stable-ordered snapshot of a user's sessions.
func (r *Registry) UserSessions(userID string) []*Session {
	shard := &r.users[shardIndex(userID)]
	shard.mu.RLock()
	sessions := make([]*Session, 0, len(shard.sessions[userID]))
	for s := range shard.sessions[userID] {
		sessions = append(sessions, s)
	}
	shard.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID() < sessions[j].ID() })
	return sessions
}

// Broadcast enqueues an event to every member of a room, skipping
// exclude when non-nil. Sessions whose send buffer is full are torn
// down rather than blocking the fan-out.
func (r *Registry) Broadcast(roomID string, ev Event, exclude *Session) {
	for _, member := range r.RoomMembers(roomID) {
		if member == exclude {
			continue
		}
		r.deliver(member, ev)
	}
}

// BroadcastToUser enqueues an event to every session of a user.
func (r *Registry) BroadcastToUser(userID string, ev Event) {
	for _, s := range r.UserSessions(userID) {
		r.deliver(s, ev)
	}
}

func (r *Registry) deliver(s *Session, ev Event) {
	if s.enqueue(ev) {
		metrics.RecordEventSent(ev.Event)
		return
	}

	// Slow consumer: drop the session, it must reconnect and resync.
	metrics.RecordSendDrop()
	logging.Warn().
		Str("session_id", s.ID()).
		Str("user_id", s.UserID()).
		Str("event", ev.Event).
		Msg("send buffer full, closing session")
	s.Close()
}

// AllSessions returns a snapshot of every registered session. Used at
// shutdown to drain connections.
func (r *Registry) AllSessions() []*Session {
	var all []*Session
	for i := range r.users {
		shard := &r.users[i]
		shard.mu.RLock()
		for _, set := range shard.sessions {
			for s := range set {
				all = append(all, s)
			}
		}
		shard.mu.RUnlock()
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	return all
}
