// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"net/http"
	"time"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/realtime"
	"github.com/parley-im/parley/internal/store"
)

// Handler holds the dependencies shared by every HTTP handler.
type Handler struct {
	cfg       *config.Config
	store     *store.DB
	jwt       *auth.JWTManager
	hub       *realtime.Hub
	startTime time.Time
}

// NewHandler creates a Handler with all dependencies.
func NewHandler(cfg *config.Config, db *store.DB, jwt *auth.JWTManager, hub *realtime.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     db,
		jwt:       jwt,
		hub:       hub,
		startTime: time.Now(),
	}
}

// Health reports liveness. Badger is embedded, so a responding process
// with an open store is a healthy one.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}, 0)
}
