// Package services contains server-side business logic. This file implements
// CredentialService, which orchestrates registration, login, password reset,
// and issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/dbx"
	"github.com/dmitrijs2005/kinkeeper/internal/server/auth"
	"github.com/dmitrijs2005/kinkeeper/internal/server/config"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/repomanager"
)

// passwordHashCost is the bcrypt cost for authentication hashes. Independent
// of the encryption key derivation: leaking a hash does not expose data.
const passwordHashCost = 12

// dummyPasswordHash is compared against on the unknown-account login path so
// that account existence does not leak through timing. Never matches.
var dummyPasswordHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CredentialService provides authentication and key-management operations:
//   - Register: create an account and its wrapped user key
//   - Login: verify credentials, recover the user key, mint tokens
//   - RefreshToken: rotate refresh tokens and mint new access tokens
//   - ResetPassword: change the password without changing the user key
//
// The master key is injected at construction, read-only thereafter.
type CredentialService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	masterKey                    []byte
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	// kdfSem bounds concurrent PBKDF2 derivations. The derivation is
	// CPU-bound for ~100ms; unbounded concurrency would let a burst of
	// registrations starve every other request.
	kdfSem *semaphore.Weighted
}

// NewCredentialService constructs a CredentialService using repositories,
// the process master key, and server config.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, masterKey []byte, cfg *config.Config) *CredentialService {
	limit := cfg.KDFConcurrencyLimit
	if limit <= 0 {
		limit = 1
	}
	return &CredentialService{
		db:                           db,
		repomanager:                  m,
		masterKey:                    masterKey,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		kdfSem:                       semaphore.NewWeighted(limit),
	}
}

// Register creates a new account. The user key is derived from the password
// and the fresh salt, wrapped under the master key, and persisted only in
// wrapped form. The raw key is returned exactly once for client-side
// retention; the server keeps no copy of it.
func (s *CredentialService) Register(ctx context.Context, email, password, displayName string) (*models.User, []byte, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return nil, nil, fmt.Errorf("error generating salt: %w", err)
	}

	userKey, err := s.deriveUserKey(ctx, password, salt)
	if err != nil {
		return nil, nil, err
	}

	wrapped, err := cryptox.WrapKey(userKey, s.masterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("error wrapping user key: %w", err)
	}

	user := &models.User{
		Email:          email,
		DisplayName:    displayName,
		PasswordHash:   passwordHash,
		EncryptionSalt: salt,
		WrappedUserKey: wrapped,
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, common.ErrorAlreadyExists
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	return u, userKey, nil
}

// Login verifies the password hash and, on success, returns a TokenPair and
// the user key. Unknown account and wrong password are indistinguishable to
// the caller.
//
// The returned key is always the unwrap of the persisted wrapped key under
// the master key — never a fresh password derivation. Only the unwrap path
// is guaranteed consistent with a key that survived a password reset.
func (s *CredentialService) Login(ctx context.Context, email, password string) (*TokenPair, []byte, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Burn the same bcrypt work as the found path.
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	userKey, err := cryptox.UnwrapKey(user.WrappedUserKey, s.masterKey)
	if err != nil {
		// The stored envelope does not open under our master key: a
		// deployment or data problem, not a caller problem.
		return nil, nil, fmt.Errorf("error unwrapping user key: %w", err)
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, nil, err
	}

	return pair, userKey, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *CredentialService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// ResetPassword changes the authentication hash without touching the
// underlying user key: the existing key is recovered via the master key
// (the old password is not involved), re-wrapped with a fresh IV, and
// persisted alongside the new hash. Outstanding refresh tokens are revoked.
//
// The key bytes are identical before and after; any deviation would make
// every previously encrypted field permanently unrecoverable.
func (s *CredentialService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	userKey, err := cryptox.UnwrapKey(user.WrappedUserKey, s.masterKey)
	if err != nil {
		return fmt.Errorf("error unwrapping user key: %w", err)
	}
	defer common.WipeByteArray(userKey)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), passwordHashCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	rewrapped, err := cryptox.WrapKey(userKey, s.masterKey)
	if err != nil {
		return fmt.Errorf("error wrapping user key: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdateCredentials(ctx, userID, passwordHash, rewrapped); err != nil {
			return fmt.Errorf("error updating credentials: %w", err)
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteAllForUser(ctx, userID); err != nil {
			return fmt.Errorf("error revoking refresh tokens: %w", err)
		}
		return nil
	})
}

// --- helpers below ---

// deriveUserKey runs the PBKDF2 derivation under the concurrency gate.
func (s *CredentialService) deriveUserKey(ctx context.Context, password string, salt []byte) ([]byte, error) {
	if err := s.kdfSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.kdfSem.Release(1)
	return cryptox.DeriveUserKey(password, salt), nil
}

func (s *CredentialService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *CredentialService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *CredentialService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
