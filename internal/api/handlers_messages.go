// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/models"
	"github.com/parley-im/parley/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Messages returns a conversation's history in chronological order,
// newest page first. Only participants may read it.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "authentication required", nil)
		return
	}

	chatID := chi.URLParam(r, "chatID")
	conv, err := h.store.GetConversation(r.Context(), chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "conversation not found", nil)
			return
		}
		respondDomainError(w, err)
		return
	}
	if !conv.HasParticipant(identity.ID) {
		respondError(w, http.StatusForbidden, models.ErrCodeForbidden, "not a participant of this conversation", nil)
		return
	}

	limit := getIntParam(r, "limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	offset := getIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	msgs, err := h.store.ListMessages(r.Context(), chatID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, msgs, len(msgs))
}

// MarkRead persists read receipts through the realtime pipeline so
// connected participants receive the same messagesRead event a socket
// initiated mark-read would produce.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "authentication required", nil)
		return
	}

	chatID := chi.URLParam(r, "chatID")
	notice, err := h.hub.Pipeline().MarkRead(r.Context(), identity, chatID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, notice, len(notice.MessageIDs))
}

// DeleteMessage soft deletes a message through the realtime pipeline.
// Only the sender may delete; the room is notified.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "authentication required", nil)
		return
	}

	messageID := chi.URLParam(r, "messageID")
	notice, err := h.hub.Pipeline().DeleteMessage(r.Context(), identity, messageID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondData(w, http.StatusOK, notice, 0)
}
