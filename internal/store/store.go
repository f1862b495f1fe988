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

	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user_email:"
	convKeyPrefix      = "conv:"
	convUserKeyPrefix  = "conv_user:"
	msgKeyPrefix       = "msg:"
	msgIDKeyPrefix     = "msg_id:"
	presenceKeyPrefix  = "presence:"
)

// DB is the durable store backing the messaging service.
// All methods are safe for concurrent use.
type DB struct {
	db *badger.DB
}

// Open opens the BadgerDB database described by cfg.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &DB{db: db}, nil
}

// NewWithBadger wraps an already-open BadgerDB handle. Used by tests.
func NewWithBadger(db *badger.DB) *DB {
	return &DB{db: db}
}

// Close closes the underlying database.
func (s *DB) Close() error {
	return s.db.Close()
}

// StartGC runs BadgerDB value log garbage collection at the configured
// interval until ctx is cancelled. No-op for in-memory databases.
func (s *DB) StartGC(ctx context.Context, interval time.Duration, discardRatio float64) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := s.db.RunValueLogGC(discardRatio)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					logging.Warn().Err(err).Msg("BadgerDB value log GC failed")
				}
			}
		}
	}()
}

// getJSON fetches the value at key and unmarshals it into out.
// Returns ErrNotFound when the key does not exist.
func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}

	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// setJSON marshals v and stores it at key.
func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
