// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/models"
)

const testSecret = "test-secret-key-minimum-32-chars!!"

func testManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()

	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, TokenTTL: ttl})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManagerEmptySecret(t *testing.T) {
	_, err := NewJWTManager(&config.SecurityConfig{TokenTTL: time.Hour})
	if err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager(t, time.Hour)
	user := &models.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}

	token, err := m.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	identity, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if identity.ID != "u1" || identity.Name != "Alice" || identity.Email != "alice@example.com" {
		t.Errorf("identity = %+v, want u1/Alice/alice@example.com", identity)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	m := testManager(t, -time.Minute)

	token, err := m.GenerateToken(&models.User{ID: "u1"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = m.ValidateToken(token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("ValidateToken(expired) error = %v, want ErrUnauthenticated", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	m := testManager(t, time.Hour)
	token, err := m.GenerateToken(&models.User{ID: "u1"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret: "another-secret-key-minimum-32-ch!!",
		TokenTTL:  time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	if _, err := other.ValidateToken(token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("ValidateToken(wrong secret) error = %v, want ErrUnauthenticated", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	m := testManager(t, time.Hour)

	tests := []string{
		"",
		"not-a-token",
		"a.b.c",
		"eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1MSJ9.",
	}

	for _, token := range tests {
		if _, err := m.ValidateToken(token); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("ValidateToken(%q) error = %v, want ErrUnauthenticated", token, err)
		}
	}
}

func TestValidateTokenMissingSubject(t *testing.T) {
	m := testManager(t, time.Hour)

	token, err := m.GenerateToken(&models.User{Name: "NoID"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := m.ValidateToken(token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("ValidateToken(no subject) error = %v, want ErrUnauthenticated", err)
	}
}
