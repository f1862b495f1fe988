// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/parley-im/parley/internal/models"
)

// msgKey builds the primary message key. The zero-padded nanosecond
// timestamp keeps iteration order chronological within a conversation.
func msgKey(convID string, createdAt time.Time, msgID string) string {
	return fmt.Sprintf("%s%s:%020d:%s", msgKeyPrefix, convID, createdAt.UnixNano(), msgID)
}

func msgIDKey(msgID string) string {
	return msgIDKeyPrefix + msgID
}

// CreateMessage stores a message under its conversation and indexes it
// by message id.
func (s *DB) CreateMessage(ctx context.Context, msg *models.Message) error {
	key := msgKey(msg.ChatID, msg.CreatedAt, msg.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, key, msg); err != nil {
			return err
		}
		if err := txn.Set([]byte(msgIDKey(msg.ID)), []byte(key)); err != nil {
			return fmt.Errorf("set message index: %w", err)
		}
		return nil
	})
}

// GetMessage retrieves a message by id through the id index.
func (s *DB) GetMessage(ctx context.Context, msgID string) (*models.Message, error) {
	var msg models.Message

	err := s.db.View(func(txn *badger.Txn) error {
		key, err := resolveMsgKey(txn, msgID)
		if err != nil {
			return err
		}
		return getJSON(txn, key, &msg)
	})
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

// ListMessages returns a page of a conversation's messages in
// chronological order. Paging walks backwards from the newest message:
// offset skips the most recent offset messages, then up to limit are
// returned (limit <= 0 means no cap).
func (s *DB) ListMessages(ctx context.Context, convID string, limit, offset int) ([]*models.Message, error) {
	var msgs []*models.Message

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := 0
		prefix := []byte(msgKeyPrefix + convID + ":")
		// Reverse iteration seeks to the last key under the prefix.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(msgs) >= limit {
				break
			}

			var msg models.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return fmt.Errorf("decode message: %w", err)
			}
			// Soft-deleted messages stay on disk but never in reads.
			if msg.Deleted {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			msgs = append(msgs, &msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Collected newest-first; flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// AppendReadReceipt adds a read receipt for userID to the message.
// Idempotent: returns false without modifying anything when the user
// already has a receipt.
func (s *DB) AppendReadReceipt(ctx context.Context, msgID, userID string, readAt time.Time) (bool, error) {
	appended := false

	err := s.db.Update(func(txn *badger.Txn) error {
		key, err := resolveMsgKey(txn, msgID)
		if err != nil {
			return err
		}

		var msg models.Message
		if err := getJSON(txn, key, &msg); err != nil {
			return err
		}
		if msg.IsReadBy(userID) {
			return nil
		}

		msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{UserID: userID, ReadAt: readAt})
		if err := setJSON(txn, key, &msg); err != nil {
			return err
		}
		appended = true
		return nil
	})

	return appended, err
}

// MarkConversationRead appends a read receipt for userID to every message
// in the conversation sent by someone else and not yet read by them.
// Returns the ids of the messages that were newly marked.
func (s *DB) MarkConversationRead(ctx context.Context, convID, userID string, readAt time.Time) ([]string, error) {
	var marked []string

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(msgKeyPrefix + convID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))

			var msg models.Message
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return fmt.Errorf("decode message: %w", err)
			}

			if msg.SenderID == userID || msg.IsReadBy(userID) {
				continue
			}

			msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{UserID: userID, ReadAt: readAt})
			if err := setJSON(txn, key, &msg); err != nil {
				return err
			}
			marked = append(marked, msg.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return marked, nil
}

// SoftDeleteMessage flips the message's deleted flag. The record stays in
// place so history listings can render a tombstone. Idempotent.
func (s *DB) SoftDeleteMessage(ctx context.Context, msgID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key, err := resolveMsgKey(txn, msgID)
		if err != nil {
			return err
		}

		var msg models.Message
		if err := getJSON(txn, key, &msg); err != nil {
			return err
		}
		if msg.Deleted {
			return nil
		}

		msg.Deleted = true
		return setJSON(txn, key, &msg)
	})
}

// resolveMsgKey looks up the primary message key for a message id.
func resolveMsgKey(txn *badger.Txn, msgID string) (string, error) {
	item, err := txn.Get([]byte(msgIDKey(msgID)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get message index: %w", err)
	}

	var key string
	err = item.Value(func(val []byte) error {
		key = string(val)
		return nil
	})
	return key, err
}
