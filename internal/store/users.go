// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/parley-im/parley/internal/models"
)

// userRecord is the persisted form of a user. The bcrypt hash is excluded
// from the model's JSON tags so it can never leak through an API response;
// the shadowing field here carries it into storage.
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func userEmailKey(email string) string {
	return userEmailKeyPrefix + strings.ToLower(email)
}

// CreateUser stores a new user and its email index entry.
// Returns ErrConflict when the email is already registered.
func (s *DB) CreateUser(ctx context.Context, user *models.User) error {
	rec := userRecord{User: *user, PasswordHash: user.PasswordHash}

	return s.db.Update(func(txn *badger.Txn) error {
		emailKey := userEmailKey(user.Email)
		_, err := txn.Get([]byte(emailKey))
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check email index: %w", err)
		}

		if err := setJSON(txn, userKey(user.ID), &rec); err != nil {
			return err
		}
		if err := txn.Set([]byte(emailKey), []byte(user.ID)); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
		return nil
	})
}

// GetUser retrieves a user by id.
func (s *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var rec userRecord

	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &rec)
	})
	if err != nil {
		return nil, err
	}

	user := rec.User
	user.PasswordHash = rec.PasswordHash
	return &user, nil
}

// GetUserByEmail retrieves a user through the email index.
func (s *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var id string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailKey(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get email index: %w", err)
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, id)
}

// ListUsers returns every registered user.
func (s *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec userRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode user: %w", err)
			}

			user := rec.User
			user.PasswordHash = rec.PasswordHash
			users = append(users, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}
