// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package realtime

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/models"
	"github.com/parley-im/parley/internal/validation"
)

// dispatch routes one inbound frame to its handler. Runs on the
// session's read pump goroutine, so a session's frames are processed
// strictly in arrival order. Failures become session-scoped error
// events; nothing about a bad frame reaches other sessions.
func (h *Hub) dispatch(s *Session, frame Frame) {
	ctx := logging.ContextWithSessionID(context.Background(), s.ID())

	switch frame.Event {
	case EventJoinChat:
		var payload JoinChatPayload
		if !h.decode(s, frame.Data, &payload) {
			return
		}
		if err := h.pipeline.JoinChat(ctx, s, payload.ChatID); err != nil {
			h.reportError(ctx, s, frame.Event, err)
		}

	case EventSendMessage:
		var payload SendMessagePayload
		if !h.decode(s, frame.Data, &payload) {
			return
		}
		if _, err := h.pipeline.SendMessage(ctx, s.Identity(), payload); err != nil {
			h.reportError(ctx, s, frame.Event, err)
		}

	case EventTyping, EventStopTyping:
		var payload TypingPayload
		if !h.decode(s, frame.Data, &payload) {
			return
		}
		stopped := frame.Event == EventStopTyping
		if err := h.pipeline.Typing(ctx, s, payload.ChatID, stopped); err != nil {
			h.reportError(ctx, s, frame.Event, err)
		}

	case EventMarkAsRead:
		var payload MarkAsReadPayload
		if !h.decode(s, frame.Data, &payload) {
			return
		}
		if _, err := h.pipeline.MarkRead(ctx, s.Identity(), payload.ChatID); err != nil {
			h.reportError(ctx, s, frame.Event, err)
		}

	case EventRequestStatusSync:
		s.enqueue(Event{Event: EventStatusSync, Data: h.pipeline.StatusSnapshot(ctx, s.UserID())})

	default:
		s.sendError(models.APIError{
			Code:    models.ErrCodeValidation,
			Message: "unknown event: " + frame.Event,
		})
	}
}

// decode unmarshals and validates an inbound payload, reporting a
// validation error to the session on failure.
func (h *Hub) decode(s *Session, data json.RawMessage, out interface{}) bool {
	if len(data) == 0 {
		s.sendError(models.APIError{Code: models.ErrCodeValidation, Message: "missing event payload"})
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.sendError(models.APIError{Code: models.ErrCodeValidation, Message: "malformed event payload"})
		return false
	}
	if err := validation.ValidateStruct(out); err != nil {
		s.sendError(toAPIError(err))
		return false
	}
	return true
}

func (h *Hub) reportError(ctx context.Context, s *Session, event string, err error) {
	apiErr := toAPIError(err)
	logging.Ctx(ctx).Warn().Err(err).
		Str("event", event).
		Str("user_id", s.UserID()).
		Str("code", apiErr.Code).
		Msg("event rejected")
	s.sendError(apiErr)
}
