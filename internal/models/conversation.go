// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package models

import "time"

// Conversation is a persistent thread between two (private) or three or
// more (group) participants. The realtime core reads the participant list
// to compute room membership and authorization; everything else is owned
// by the REST surface.
type Conversation struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	IsGroup       bool      `json:"is_group"`
	GroupName     string    `json:"group_name,omitempty"`
	GroupAvatar   string    `json:"group_avatar,omitempty"`
	GroupAdminID  string    `json:"group_admin_id,omitempty"`
	LastMessageID string    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Archived      bool      `json:"archived"`
	Active        bool      `json:"active"`
}

// HasParticipant reports whether userID is a participant of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant id except userID.
func (c *Conversation) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}
