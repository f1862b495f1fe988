// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("CheckPassword(correct) error = %v", err)
	}

	err = CheckPassword(hash, "wrong password")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("CheckPassword(wrong) error = %v, want ErrUnauthenticated", err)
	}
}

func TestCheckPasswordBadHash(t *testing.T) {
	if err := CheckPassword("not-a-bcrypt-hash", "anything"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("CheckPassword(bad hash) error = %v, want ErrUnauthenticated", err)
	}
}
