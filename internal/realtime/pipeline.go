// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package realtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/metrics"
	"github.com/parley-im/parley/internal/models"
	"github.com/parley-im/parley/internal/store"
)

// Pipeline implements the messaging operations behind the realtime
// events: authorize, persist, then broadcast, in that order. Nothing
// is ever fanned out before it is durably stored.
type Pipeline struct {
	store    *store.DB
	registry *Registry
}

// NewPipeline creates the message pipeline.
func NewPipeline(db *store.DB, registry *Registry) *Pipeline {
	return &Pipeline{store: db, registry: registry}
}

// authorize loads the conversation and checks the user participates in
// it. Every conversation-scoped operation funnels through here.
func (p *Pipeline) authorize(ctx context.Context, userID, chatID string) (*models.Conversation, error) {
	conv, err := p.store.GetConversation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return conv, nil
}

// JoinChat adds the session to the conversation's room after verifying
// membership.
func (p *Pipeline) JoinChat(ctx context.Context, s *Session, chatID string) error {
	if _, err := p.authorize(ctx, s.UserID(), chatID); err != nil {
		return err
	}
	return p.registry.Join(chatID, s)
}

// SendMessage persists a message and broadcasts it to the conversation's
// room, including the sender's own sessions. The broadcast carries the
// sender summary and echoes the client's correlation token (null when
// the client omitted it).
func (p *Pipeline) SendMessage(ctx context.Context, sender *auth.Identity, payload SendMessagePayload) (*models.BroadcastMessage, error) {
	if _, err := p.authorize(ctx, sender.ID, payload.ChatID); err != nil {
		return nil, err
	}

	msg := models.Message{
		ID:        uuid.New().String(),
		ChatID:    payload.ChatID,
		SenderID:  sender.ID,
		Content:   payload.Content,
		Type:      payload.Type,
		FileURL:   payload.FileURL,
		ReadBy:    []models.ReadReceipt{},
		CreatedAt: time.Now().UTC(),
	}

	if err := p.store.CreateMessage(ctx, &msg); err != nil {
		metrics.RecordStoreError("create_message")
		return nil, fmt.Errorf("persist message: %w", err)
	}
	metrics.RecordMessagePersisted()

	// The pointer update is best-effort: the message itself is durable
	// and conversation listings fall back to scanning.
	if err := p.store.UpdateConversationLastMessage(ctx, payload.ChatID, msg.ID); err != nil {
		metrics.RecordStoreError("update_last_message")
		logging.Ctx(ctx).Warn().Err(err).
			Str("chat_id", payload.ChatID).
			Msg("failed to update last message pointer")
	}

	broadcast := &models.BroadcastMessage{
		Message:  msg,
		Sender:   models.UserSummary{ID: sender.ID, Name: sender.Name},
		ClientID: payload.ClientID,
	}

	p.registry.Broadcast(payload.ChatID, Event{Event: EventReceiveMessage, Data: broadcast}, nil)
	metrics.RecordMessageBroadcast()

	return broadcast, nil
}

// Typing relays a typing indicator to every room member except the
// typist. Indicators are ephemeral: nothing is persisted.
func (p *Pipeline) Typing(ctx context.Context, s *Session, chatID string, stopped bool) error {
	if _, err := p.authorize(ctx, s.UserID(), chatID); err != nil {
		return err
	}

	event := EventUserTyping
	if stopped {
		event = EventUserStoppedTyping
	}

	notice := TypingNotice{ChatID: chatID, UserID: s.UserID(), UserName: s.Identity().Name}
	p.registry.Broadcast(chatID, Event{Event: event, Data: notice}, s)
	return nil
}

// MarkRead persists read receipts for every unread message the user
// did not send, then broadcasts which messages flipped. A repeat call
// is a no-op with an empty id list; receipts never duplicate.
func (p *Pipeline) MarkRead(ctx context.Context, sender *auth.Identity, chatID string) (*MessagesReadNotice, error) {
	if _, err := p.authorize(ctx, sender.ID, chatID); err != nil {
		return nil, err
	}

	readAt := time.Now().UTC()
	marked, err := p.store.MarkConversationRead(ctx, chatID, sender.ID, readAt)
	if err != nil {
		metrics.RecordStoreError("mark_read")
		return nil, fmt.Errorf("persist read receipts: %w", err)
	}

	notice := &MessagesReadNotice{
		ChatID:     chatID,
		UserID:     sender.ID,
		MessageIDs: marked,
		ReadAt:     readAt,
	}

	if len(marked) > 0 {
		p.registry.Broadcast(chatID, Event{Event: EventMessagesRead, Data: notice}, nil)
	}
	return notice, nil
}

// DeleteMessage soft deletes a message. Only the sender may delete
// their own message; the room is notified so clients render a
// tombstone.
func (p *Pipeline) DeleteMessage(ctx context.Context, sender *auth.Identity, messageID string) (*MessageDeletedNotice, error) {
	msg, err := p.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != sender.ID {
		return nil, ErrForbidden
	}

	if err := p.store.SoftDeleteMessage(ctx, messageID); err != nil {
		metrics.RecordStoreError("delete_message")
		return nil, fmt.Errorf("soft delete message: %w", err)
	}

	notice := &MessageDeletedNotice{ChatID: msg.ChatID, MessageID: messageID}
	p.registry.Broadcast(msg.ChatID, Event{Event: EventMessageDeleted, Data: notice}, nil)
	return notice, nil
}

// StatusSnapshot builds the statusSync payload: presence for every
// contact of the user. Storage trouble degrades to a partial or empty
// snapshot rather than failing the request; presence is advisory.
func (p *Pipeline) StatusSnapshot(ctx context.Context, userID string) StatusSyncPayload {
	contacts, _, err := p.contactsOf(ctx, userID)
	if err != nil {
		metrics.RecordStoreError("status_snapshot")
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("status snapshot degraded to empty")
		return StatusSyncPayload{}
	}

	statuses, err := p.store.GetPresenceStatuses(ctx, contacts)
	if err != nil {
		metrics.RecordStoreError("status_snapshot")
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("status snapshot degraded to partial")
	}
	return statuses
}

// contactsOf returns the deduplicated ids of everyone sharing a
// conversation with the user, plus the conversation ids themselves.
func (p *Pipeline) contactsOf(ctx context.Context, userID string) (contacts, convIDs []string, err error) {
	convs, err := p.store.GetConversationsByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list conversations: %w", err)
	}

	seen := make(map[string]struct{})
	for _, conv := range convs {
		convIDs = append(convIDs, conv.ID)
		for _, other := range conv.OtherParticipants(userID) {
			if _, dup := seen[other]; dup {
				continue
			}
			seen[other] = struct{}{}
			contacts = append(contacts, other)
		}
	}

	sort.Strings(contacts)
	return contacts, convIDs, nil
}
