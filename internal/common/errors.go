// Package common defines shared constants and sentinel errors used across
// client and server layers of StackPad. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Reconciler errors: activation preconditions and ambiguous repairs.
	ErrStackNotFound   = errors.New("stack not found")
	ErrStackDeleted    = errors.New("stack is deleted")
	ErrStackDraft      = errors.New("stack is a draft")
	ErrAmbiguousActive = errors.New("multiple active stacks, no tiebreak")

	// Transfer errors.
	ErrSourceNotFound     = errors.New("local byte source not found")
	ErrUploadInProgress   = errors.New("upload already in progress")
	ErrDownloadInProgress = errors.New("download already in progress")
	ErrDownloadCancelled  = errors.New("download cancelled")
	ErrNotRetryable       = errors.New("item is not in a failed state")
	ErrRetriesExhausted   = errors.New("retry attempts exhausted")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
