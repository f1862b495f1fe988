// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package realtime

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/metrics"
	"github.com/parley-im/parley/internal/models"
)

// Session is one authenticated WebSocket connection. A user with three
// devices has three sessions; rooms and presence fan out per session.
type Session struct {
	id       string
	identity *auth.Identity
	conn     *websocket.Conn
	hub      *Hub

	send chan Event
	done chan struct{}

	// limiter throttles inbound events per session, protecting the
	// pipeline from a misbehaving client.
	limiter *rate.Limiter

	closeOnce sync.Once

	roomsMu sync.Mutex
	rooms   map[string]struct{}
}

func newSession(hub *Hub, conn *websocket.Conn, identity *auth.Identity) *Session {
	return &Session{
		id:       uuid.New().String(),
		identity: identity,
		conn:     conn,
		hub:      hub,
		send:     make(chan Event, hub.cfg.SendBuffer),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Limit(hub.cfg.EventRate), hub.cfg.EventBurst),
		rooms:    make(map[string]struct{}),
	}
}

// ID returns the session's connection handle, unique per connection.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the authenticated user's id.
func (s *Session) UserID() string {
	return s.identity.ID
}

// Identity returns the authenticated principal.
func (s *Session) Identity() *auth.Identity {
	return s.identity
}

func (s *Session) trackRoom(roomID string) {
	s.roomsMu.Lock()
	s.rooms[roomID] = struct{}{}
	s.roomsMu.Unlock()
}

func (s *Session) untrackRoom(roomID string) {
	s.roomsMu.Lock()
	delete(s.rooms, roomID)
	s.roomsMu.Unlock()
}

func (s *Session) roomSnapshot() []string {
	s.roomsMu.Lock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.roomsMu.Unlock()
	return ids
}

// InRoom reports whether the session is currently a member of the room.
func (s *Session) InRoom(roomID string) bool {
	s.roomsMu.Lock()
	_, ok := s.rooms[roomID]
	s.roomsMu.Unlock()
	return ok
}

// enqueue queues an outbound event without blocking. Returns false when
// the session is closed or its buffer is full.
func (s *Session) enqueue(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}

// Close tears the session down exactly once: the connection is closed,
// both pumps unwind, and the hub runs the disconnect flow (room
// departure, presence stamping, offline broadcast).
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		//nolint:errcheck // best-effort close of a possibly dead connection
		_ = s.conn.Close()
		s.hub.handleDisconnect(s)
	})
}

// readPump reads client frames and dispatches them inline. Processing
// one frame at a time preserves per-session event ordering.
func (s *Session) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(s.hub.cfg.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.PongWait)); err != nil {
		logging.Error().Err(err).Str("session_id", s.id).Msg("failed to set read deadline")
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("session_id", s.id).Msg("unexpected websocket close")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.sendError(models.APIError{
				Code:    models.ErrCodeValidation,
				Message: "invalid frame: expected {event, data}",
			})
			continue
		}

		if !s.limiter.Allow() {
			metrics.RecordEventThrottled()
			logging.Debug().
				Str("session_id", s.id).
				Str("user_id", s.UserID()).
				Str("event", frame.Event).
				Msg("inbound event throttled")
			continue
		}

		metrics.RecordEventReceived(frame.Event)
		s.hub.dispatch(s, frame)
	}
}

// writePump drains the send channel to the connection and keeps it
// alive with periodic pings.
func (s *Session) writePump() {
	pingPeriod := s.hub.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			//nolint:errcheck // connection is going away regardless
			_ = s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(s.hub.cfg.WriteWait))
			return

		case ev := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait)); err != nil {
				logging.Error().Err(err).Str("session_id", s.id).Msg("failed to set write deadline")
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				logging.Debug().Err(err).Str("session_id", s.id).Msg("failed to write event")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError queues a session-scoped error event. Errors never fan out
// beyond the session that caused them.
func (s *Session) sendError(apiErr models.APIError) {
	s.enqueue(Event{Event: EventError, Data: apiErr})
}
