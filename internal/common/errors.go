// Package common defines shared constants and sentinel errors used across
// the kinkeeper server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("invalid credentials")

	// Configuration errors. Fatal at startup: the process must refuse to run
	// with a missing or malformed master key rather than degrade.
	ErrInvalidMasterKey = errors.New("master key is missing or not 32 bytes")

	// Cryptographic errors. ErrDecryptionFailed means the AEAD tag did not
	// verify: wrong key, corruption, or tampering. It is deterministic and
	// never retried.
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// Per-request key transport errors.
	ErrEncryptionKeyRequired = errors.New("encryption key required")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
