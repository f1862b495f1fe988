// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/parley-im/parley/internal/models"
)

func presenceKey(userID string) string {
	return presenceKeyPrefix + userID
}

// SetPresenceOnline marks the user online and records connID as the owning
// connection. A later connection from the same user overwrites connID
// (last writer wins).
func (s *DB) SetPresenceOnline(ctx context.Context, userID, connID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var rec models.PresenceRecord
		err := getJSON(txn, presenceKey(userID), &rec)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		rec.UserID = userID
		rec.Online = true
		rec.ConnectionID = connID
		return setJSON(txn, presenceKey(userID), &rec)
	})
}

// SetPresenceOffline marks the user offline and stamps the disconnect time,
// but only when the stored record is still owned by connID. Returns whether
// the record was transitioned. A stale teardown from a superseded connection
// is a no-op, so the replacement connection's online state survives.
func (s *DB) SetPresenceOffline(ctx context.Context, userID, connID string, at time.Time) (bool, error) {
	cleared := false

	err := s.db.Update(func(txn *badger.Txn) error {
		var rec models.PresenceRecord
		err := getJSON(txn, presenceKey(userID), &rec)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.ConnectionID != connID {
			return nil
		}

		rec.Online = false
		rec.ConnectionID = ""
		rec.LastConnection = &at
		if err := setJSON(txn, presenceKey(userID), &rec); err != nil {
			return err
		}
		cleared = true
		return nil
	})

	return cleared, err
}

// GetPresence retrieves a user's presence record. Users that have never
// connected get ErrNotFound; callers treat that as offline with no
// last-connection timestamp.
func (s *DB) GetPresence(ctx context.Context, userID string) (*models.PresenceRecord, error) {
	var rec models.PresenceRecord

	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, presenceKey(userID), &rec)
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// GetPresenceStatuses builds a statusSync snapshot for the given users.
// Missing records resolve to offline entries. A read failure on one record
// leaves that user out of the map rather than failing the snapshot.
func (s *DB) GetPresenceStatuses(ctx context.Context, userIDs []string) (map[string]models.PresenceStatus, error) {
	statuses := make(map[string]models.PresenceStatus, len(userIDs))

	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range userIDs {
			var rec models.PresenceRecord
			err := getJSON(txn, presenceKey(id), &rec)
			if errors.Is(err, ErrNotFound) {
				statuses[id] = models.PresenceStatus{}
				continue
			}
			if err != nil {
				continue
			}
			statuses[id] = rec.Status()
		}
		return nil
	})
	if err != nil {
		return statuses, err
	}

	return statuses, nil
}
