// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package realtime

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/parley-im/parley/internal/models"
)

// Inbound event names (client to server).
const (
	EventJoinChat          = "joinChat"
	EventSendMessage       = "sendMessage"
	EventTyping            = "typing"
	EventStopTyping        = "stopTyping"
	EventMarkAsRead        = "markAsRead"
	EventRequestStatusSync = "requestStatusSync"
)

// Outbound event names (server to client).
const (
	EventReceiveMessage    = "receiveMessage"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventMessagesRead      = "messagesRead"
	EventStatusSync        = "statusSync"
	EventUserStatusChanged = "userStatusChanged"
	EventMessageDeleted    = "messageDeleted"
	EventError             = "error"
)

// Frame is a decoded inbound client frame. Data stays raw until the
// dispatcher knows which payload type the event carries.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event is an outbound frame queued on a session's send channel.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// JoinChatPayload asks to join a conversation's room.
type JoinChatPayload struct {
	ChatID string `json:"chat_id" validate:"required"`
}

// SendMessagePayload carries a new message. ClientID is an optional
// client-side correlation token, echoed back verbatim in the broadcast.
type SendMessagePayload struct {
	ChatID   string  `json:"chat_id" validate:"required"`
	Content  string  `json:"content" validate:"required,max=10000"`
	Type     string  `json:"type" validate:"required,msgtype"`
	FileURL  string  `json:"fileUrl" validate:"omitempty,url"`
	ClientID *string `json:"client_id"`
}

// TypingPayload accompanies typing and stopTyping.
type TypingPayload struct {
	ChatID string `json:"chat_id" validate:"required"`
}

// MarkAsReadPayload asks to mark a conversation's messages as read.
type MarkAsReadPayload struct {
	ChatID string `json:"chat_id" validate:"required"`
}

// TypingNotice is broadcast as userTyping / userStoppedTyping to every
// room member except the typist. UserName rides along so clients can
// render the indicator without a directory lookup.
type TypingNotice struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// MessagesReadNotice is broadcast as messagesRead after read receipts
// are persisted.
type MessagesReadNotice struct {
	ChatID     string    `json:"chat_id"`
	UserID     string    `json:"user_id"`
	MessageIDs []string  `json:"message_ids"`
	ReadAt     time.Time `json:"read_at"`
}

// UserStatusNotice is broadcast as userStatusChanged when a contact's
// presence flips.
type UserStatusNotice struct {
	UserID         string     `json:"user_id"`
	Online         bool       `json:"online"`
	LastConnection *time.Time `json:"last_connection"`
}

// MessageDeletedNotice is broadcast as messageDeleted after a soft
// delete is persisted.
type MessageDeletedNotice struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// StatusSyncPayload is the statusSync snapshot: presence keyed by
// user id for every contact of the requesting user.
type StatusSyncPayload map[string]models.PresenceStatus
