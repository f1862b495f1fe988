// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/models"
	"github.com/parley-im/parley/internal/store"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse is returned by both register and login.
type authResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Register creates an account and issues a token so the client can
// open a socket without a second round trip.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStorage, "failed to hash password", err)
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
		Active:       true,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusConflict, models.ErrCodeConflict, "email already registered", nil)
			return
		}
		respondDomainError(w, err)
		return
	}

	token, err := h.jwt.GenerateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStorage, "failed to issue token", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Msg("user registered")
	respondData(w, http.StatusCreated, authResponse{Token: token, User: user.Public()}, 0)
}

// Login verifies credentials and issues a token. Unknown email and
// wrong password produce the same response so accounts cannot be
// enumerated.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "invalid email or password", nil)
			return
		}
		respondDomainError(w, err)
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthenticated, "invalid email or password", nil)
		return
	}

	token, err := h.jwt.GenerateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeStorage, "failed to issue token", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Msg("user logged in")
	respondData(w, http.StatusOK, authResponse{Token: token, User: user.Public()}, 0)
}
