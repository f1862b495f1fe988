// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package models

import "time"

// User represents a registered account.
//
// PasswordHash is a bcrypt hash and must never be serialized to clients;
// the json tag omits it and Public() strips it for API responses.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	ModifiedAt   *time.Time `json:"modified_at,omitempty"`
	Active       bool       `json:"active"`
}

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public returns the client-facing projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is the minimal sender identification embedded in broadcast
// message payloads.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
