// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/metrics"
	"github.com/parley-im/parley/internal/store"
)

// Hub owns the realtime core: it accepts authenticated connections,
// runs the connect and disconnect flows, and routes inbound frames to
// the pipeline. It is a suture service; Serve blocks until shutdown
// and then drains every session.
type Hub struct {
	cfg      config.RealtimeConfig
	store    *store.DB
	registry *Registry
	pipeline *Pipeline
}

// NewHub creates the hub and its pipeline.
func NewHub(cfg config.RealtimeConfig, db *store.DB, registry *Registry) *Hub {
	return &Hub{
		cfg:      cfg,
		store:    db,
		registry: registry,
		pipeline: NewPipeline(db, registry),
	}
}

// Pipeline exposes the message pipeline to the REST surface, which
// reuses it so HTTP-triggered mutations fan out exactly like
// socket-triggered ones.
func (h *Hub) Pipeline() *Pipeline {
	return h.pipeline
}

// Serve implements suture.Service. It blocks until the context is
// canceled, then stops accepting registry work and closes every
// session.
func (h *Hub) Serve(ctx context.Context) error {
	logging.Info().Msg("realtime hub started")
	<-ctx.Done()

	h.registry.Close()
	sessions := h.registry.AllSessions()
	for _, s := range sessions {
		s.Close()
	}

	logging.Info().
		Str("component", "realtime-hub").
		Int("sessions_closed", len(sessions)).
		Msg("realtime hub stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (h *Hub) String() string {
	return "realtime-hub"
}

// HandleConnection runs a session's full lifecycle on an upgraded
// connection. It blocks until the client disconnects; the caller is the
// HTTP handler goroutine, which gorilla/websocket hands over after the
// upgrade.
func (h *Hub) HandleConnection(conn *websocket.Conn, identity *auth.Identity) {
	s := newSession(h, conn, identity)

	go s.writePump()

	if !h.handleConnect(s) {
		s.Close()
		return
	}

	s.readPump()
}

// handleConnect runs the join flow: register, come online, enter every
// conversation's room, announce to contacts, and deliver the initial
// statusSync snapshot. Storage trouble degrades the snapshot and room
// set instead of rejecting the connection; only a closed registry
// refuses it.
func (h *Hub) handleConnect(s *Session) bool {
	ctx := logging.ContextWithSessionID(context.Background(), s.ID())

	if err := h.registry.RegisterSession(s); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("rejecting connection during shutdown")
		return false
	}
	metrics.TrackConnection(true)

	if err := h.store.SetPresenceOnline(ctx, s.UserID(), s.ID()); err != nil {
		metrics.RecordStoreError("presence_online")
		logging.Ctx(ctx).Error().Err(err).Str("user_id", s.UserID()).Msg("failed to persist online presence")
	} else {
		metrics.RecordPresenceTransition(true)
	}

	contacts, convIDs, err := h.pipeline.contactsOf(ctx, s.UserID())
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user_id", s.UserID()).
			Msg("joining no rooms, conversation listing failed")
	} else {
		for _, convID := range convIDs {
			if err := h.registry.Join(convID, s); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("chat_id", convID).Msg("room join failed")
			}
		}

		notice := UserStatusNotice{UserID: s.UserID(), Online: true}
		for _, contact := range contacts {
			h.registry.BroadcastToUser(contact, Event{Event: EventUserStatusChanged, Data: notice})
		}
	}

	s.enqueue(Event{Event: EventStatusSync, Data: h.pipeline.StatusSnapshot(ctx, s.UserID())})

	logging.Ctx(ctx).Info().
		Str("user_id", s.UserID()).
		Int("rooms", len(convIDs)).
		Msg("session connected")
	return true
}

// handleDisconnect runs the teardown flow once per session: leave all
// rooms, deregister, stamp presence, and announce going offline. The
// offline stamp only happens when this session still owns the presence
// record, so a newer connection from the same user survives.
func (h *Hub) handleDisconnect(s *Session) {
	ctx := logging.ContextWithSessionID(context.Background(), s.ID())

	h.registry.LeaveAll(s)
	h.registry.UnregisterSession(s)
	metrics.TrackConnection(false)

	now := time.Now().UTC()
	cleared, err := h.store.SetPresenceOffline(ctx, s.UserID(), s.ID(), now)
	if err != nil {
		metrics.RecordStoreError("presence_offline")
		logging.Ctx(ctx).Error().Err(err).Str("user_id", s.UserID()).Msg("failed to persist offline presence")
	}

	if cleared {
		metrics.RecordPresenceTransition(false)

		contacts, _, err := h.pipeline.contactsOf(ctx, s.UserID())
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", s.UserID()).Msg("skipping offline announcement")
		} else {
			notice := UserStatusNotice{UserID: s.UserID(), Online: false, LastConnection: &now}
			for _, contact := range contacts {
				h.registry.BroadcastToUser(contact, Event{Event: EventUserStatusChanged, Data: notice})
			}
		}
	}

	logging.Ctx(ctx).Info().Str("user_id", s.UserID()).Msg("session disconnected")
}
