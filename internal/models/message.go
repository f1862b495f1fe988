// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package models

import "time"

// Message content types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeAudio = "audio"
	MessageTypeVideo = "video"
	MessageTypeFile  = "file"
)

// ValidMessageType reports whether t is a recognized message content type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeVideo, MessageTypeFile:
		return true
	}
	return false
}

// ReadReceipt records that a user has read a message.
type ReadReceipt struct {
	UserID string    `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
}

// Message is a single chat message. Messages are immutable after creation
// except for appending read receipts and flipping the soft-delete flag.
// Display order is CreatedAt, ties broken by ID.
type Message struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat_id"`
	SenderID  string        `json:"sender_id"`
	Content   string        `json:"content"`
	Type      string        `json:"type"`
	FileURL   string        `json:"file_url,omitempty"`
	ReadBy    []ReadReceipt `json:"read_by"`
	CreatedAt time.Time     `json:"created_at"`
	Deleted   bool          `json:"deleted"`
}

// IsReadBy reports whether userID already has a read receipt on the message.
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// Before reports whether m sorts before other in display order
// (creation timestamp, ties broken by id).
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// BroadcastMessage is the canonical wire representation of a message as
// delivered to a conversation's room: the message fields plus an embedded
// sender summary and the echoed client correlation token.
//
// ClientID is supplied by the sending client with the original request and
// echoed back unchanged (null when omitted) so the originator can reconcile
// its optimistic local copy with the server-confirmed message. It carries
// no server-side meaning and is never persisted.
type BroadcastMessage struct {
	Message
	Sender   UserSummary `json:"sender"`
	ClientID *string     `json:"client_id"`
}
