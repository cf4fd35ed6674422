package cryptox

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// SaltSize is the size of the per-user random salt generated once at
// registration.
const SaltSize = 32

// kdfIterations is the PBKDF2 cost. It is part of the stored protocol:
// keys already derived and wrapped were produced at this cost, so changing
// the value makes them unreproducible from the password. Do not touch
// without a migration that re-wraps every user key.
const kdfIterations = 100_000

// DeriveUserKey stretches a password and a per-user salt into a 256-bit
// symmetric key via PBKDF2-HMAC-SHA256. Deterministic and stateless:
// identical inputs always yield the identical key, and concurrent calls
// are safe. The call is CPU-bound by design; callers serving many requests
// should gate it (see CredentialService).
func DeriveUserKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, KeySize, sha256.New)
}

// GenerateSalt returns SaltSize random bytes. Invoked exactly once per
// account at registration; the salt is persisted alongside the wrapped key.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// GenerateKey returns a fresh random 256-bit symmetric key, used for user
// keys at registration and for per-document data keys.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
