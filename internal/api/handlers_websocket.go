// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/models"
)

// WebSocket upgrades an authenticated request and hands the connection
// to the realtime hub. Authentication happens before the upgrade (the
// auth middleware accepts the bearer header or a token query parameter,
// since browser WebSocket clients cannot set headers), so an
// unauthenticated request never reaches the upgrader.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "authentication required", nil)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		logging.Ctx(r.Context()).Warn().Err(err).Str("user_id", identity.ID).Msg("websocket upgrade failed")
		return
	}

	h.hub.HandleConnection(conn, identity)
}

// checkOrigin permits the configured CORS origins. With no origins
// configured (development) every origin is accepted; token auth is
// still required either way.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.Security.CORSOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
