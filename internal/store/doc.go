// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

// Package store provides durable persistence for users, conversations,
// messages, and presence records on top of BadgerDB.
//
// Records are stored as JSON values under prefixed keys:
//
//	user:<userID>                          user record
//	user_email:<email>                     email -> userID index
//	conv:<convID>                          conversation record
//	conv_user:<userID>:<convID>            membership index
//	msg:<convID>:<timestamp>:<msgID>       message record, timestamp zero-padded
//	msg_id:<msgID>                         messageID -> full message key index
//	presence:<userID>                      presence record
//
// The zero-padded nanosecond timestamp in message keys makes Badger's
// lexicographic iteration order match chronological order, so listing a
// conversation's history is a single prefix scan.
package store
