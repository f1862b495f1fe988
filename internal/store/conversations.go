// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/parley-im/parley/internal/models"
)

func convKey(id string) string {
	return convKeyPrefix + id
}

func convUserKey(userID, convID string) string {
	return convUserKeyPrefix + userID + ":" + convID
}

// CreateConversation stores a conversation and a membership index entry
// for each participant.
func (s *DB) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, convKey(conv.ID), conv); err != nil {
			return err
		}
		for _, p := range conv.Participants {
			key := convUserKey(p, conv.ID)
			if err := txn.Set([]byte(key), []byte(conv.ID)); err != nil {
				return fmt.Errorf("set membership index: %w", err)
			}
		}
		return nil
	})
}

// GetConversation retrieves a conversation by id.
func (s *DB) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation

	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, convKey(id), &conv)
	})
	if err != nil {
		return nil, err
	}

	return &conv, nil
}

// GetConversationsByUser returns every active conversation the user
// participates in, newest first.
func (s *DB) GetConversationsByUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	var convs []*models.Conversation

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(convUserKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			convID := string(it.Item().Key()[len(prefix):])

			var conv models.Conversation
			if err := getJSON(txn, convKey(convID), &conv); err != nil {
				// Membership index may outlive a purged conversation.
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			if conv.Active {
				convs = append(convs, &conv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})
	return convs, nil
}

// FindPrivateConversation returns the active one-to-one conversation between
// the two users, or ErrNotFound when none exists. Used to deduplicate
// private chat creation.
func (s *DB) FindPrivateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	convs, err := s.GetConversationsByUser(ctx, userA)
	if err != nil {
		return nil, err
	}

	for _, conv := range convs {
		if conv.IsGroup || len(conv.Participants) != 2 {
			continue
		}
		if conv.HasParticipant(userB) {
			return conv, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateConversationLastMessage records the id of the most recent message.
func (s *DB) UpdateConversationLastMessage(ctx context.Context, convID, msgID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var conv models.Conversation
		if err := getJSON(txn, convKey(convID), &conv); err != nil {
			return err
		}
		conv.LastMessageID = msgID
		return setJSON(txn, convKey(convID), &conv)
	})
}

// GetConversationParticipants returns the participant ids of a conversation.
func (s *DB) GetConversationParticipants(ctx context.Context, convID string) ([]string, error) {
	conv, err := s.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	return conv.Participants, nil
}
