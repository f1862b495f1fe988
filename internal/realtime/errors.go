// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package realtime

import (
	"errors"

	"github.com/parley-im/parley/internal/models"
	"github.com/parley-im/parley/internal/store"
	"github.com/parley-im/parley/internal/validation"
)

var (
	// ErrForbidden is returned when an authenticated user targets a
	// conversation they do not participate in.
	ErrForbidden = errors.New("not a participant of this conversation")

	// ErrRegistryClosed is returned when an operation reaches the
	// registry after shutdown has begun. Clients may retry after
	// reconnecting.
	ErrRegistryClosed = errors.New("registry is shutting down")
)

// ErrCodeRegistry is the error code for registry failures. It is
// transient: the client should reconnect and retry.
const ErrCodeRegistry = "TRANSIENT_REGISTRY_ERROR"

// toAPIError maps a pipeline or dispatcher error to the wire error
// payload. Storage failures collapse to a generic STORAGE_ERROR so
// internals never leak to clients.
func toAPIError(err error) models.APIError {
	var vErr *validation.RequestValidationError

	switch {
	case errors.Is(err, ErrForbidden):
		return models.APIError{Code: models.ErrCodeForbidden, Message: err.Error()}
	case errors.Is(err, store.ErrNotFound):
		return models.APIError{Code: models.ErrCodeNotFound, Message: "resource not found"}
	case errors.Is(err, ErrRegistryClosed):
		return models.APIError{Code: ErrCodeRegistry, Message: "temporarily unavailable, retry after reconnecting"}
	case errors.As(err, &vErr):
		return models.APIError{Code: models.ErrCodeValidation, Message: vErr.Error()}
	default:
		return models.APIError{Code: models.ErrCodeStorage, Message: "storage operation failed"}
	}
}
