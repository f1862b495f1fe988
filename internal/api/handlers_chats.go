// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/models"
	"github.com/parley-im/parley/internal/store"
)

type createChatRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
}

type createGroupChatRequest struct {
	Name           string   `json:"name" validate:"required,max=100"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=2,dive,required"`
}

// CreateChat creates a private conversation between the caller and one
// other user. An existing private chat between the pair is returned
// instead of creating a duplicate.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "authentication required", nil)
		return
	}

	var req createChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.ParticipantID == identity.ID {
		respondError(w, http.StatusUnprocessableEntity, models.ErrCodeValidation, "cannot start a chat with yourself", nil)
		return
	}

	if _, err := h.store.GetUser(r.Context(), req.ParticipantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "participant not found", nil)
			return
		}
		respondDomainError(w, err)
		return
	}

	existing, err := h.store.FindPrivateConversation(r.Context(), identity.ID, req.ParticipantID)
	if err == nil {
		respondData(w, http.StatusOK, existing, 0)
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		respondDomainError(w, err)
		return
	}

	conv := &models.Conversation{
		ID:           uuid.NewString(),
		Participants: []string{identity.ID, req.ParticipantID},
		IsGroup:      false,
		CreatedAt:    time.Now().UTC(),
		Active:       true,
	}

	if err := h.store.CreateConversation(r.Context(), conv); err != nil {
		respondDomainError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("chat_id", conv.ID).Str("user_id", identity.ID).Msg("private chat created")
	respondData(w, http.StatusCreated, conv, 0)
}

// CreateGroupChat creates a group conversation. The caller becomes the
// group admin and is always a participant; at least three distinct
// members are required.
func (h *Handler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "authentication required", nil)
		return
	}

	var req createGroupChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	seen := map[string]bool{identity.ID: true}
	participants := []string{identity.ID}
	for _, id := range req.ParticipantIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}

	if len(participants) < 3 {
		respondError(w, http.StatusUnprocessableEntity, models.ErrCodeValidation, "a group chat needs at least 3 distinct participants", nil)
		return
	}

	for _, id := range participants[1:] {
		if _, err := h.store.GetUser(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "participant not found: "+id, nil)
				return
			}
			respondDomainError(w, err)
			return
		}
	}

	conv := &models.Conversation{
		ID:           uuid.NewString(),
		Participants: participants,
		IsGroup:      true,
		GroupName:    req.Name,
		GroupAdminID: identity.ID,
		CreatedAt:    time.Now().UTC(),
		Active:       true,
	}

	if err := h.store.CreateConversation(r.Context(), conv); err != nil {
		respondDomainError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("chat_id", conv.ID).Str("user_id", identity.ID).Int("participants", len(participants)).Msg("group chat created")
	respondData(w, http.StatusCreated, conv, 0)
}

// Chats lists the caller's active conversations, most recent first.
func (h *Handler) Chats(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "authentication required", nil)
		return
	}

	convs, err := h.store.GetConversationsByUser(r.Context(), identity.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, convs, len(convs))
}
