// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"net/http"

	"github.com/parley-im/parley/internal/models"
)

// Users lists every active account as a contact directory. Password
// hashes never leave the store layer; the public projection carries
// only id, name and email.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		if !u.Active {
			continue
		}
		public = append(public, u.Public())
	}

	respondData(w, http.StatusOK, public, len(public))
}
