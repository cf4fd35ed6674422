// Package cryptox implements the per-user envelope-encryption core:
// the Envelope format, PBKDF2 key derivation, key wrapping under the
// process master key, and per-field encryption of protected attributes.
//
// A single serialized format, Envelope, is used both to wrap a user key
// under the master key and to encrypt an individual plaintext field under
// a user key. All encryption is AES-256-GCM with a fresh random 16-byte IV
// per call; decryption verifies the authentication tag before returning any
// plaintext and fails closed otherwise.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/kinkeeper/internal/common"
)

const (
	// KeySize is the size of every symmetric key in the system: the master
	// key, user keys, and document data keys.
	KeySize = 32

	// IVSize is the GCM nonce size used uniformly for key wrapping and
	// field encryption. 16 bytes rather than the conventional 12: the
	// persisted format fixes a 16-byte iv field, and the IV is always
	// freshly random and never reused, so the larger size is safe. Changing
	// it would be a format break.
	IVSize = 16

	// TagSize is the GCM authentication tag size.
	TagSize = 16
)

// Envelope is the serialized form of one AEAD encryption: a random IV, the
// ciphertext, and the authentication tag, each hex-encoded on the wire. A nil
// *Envelope is the explicit Absent marker for fields without a value.
type Envelope struct {
	IV         []byte
	Ciphertext []byte
	AuthTag    []byte
}

type envelopeJSON struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	AuthTag    string `json:"auth_tag"`
}

// MarshalJSON encodes the envelope with hex-encoded fields.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		IV:         hex.EncodeToString(e.IV),
		Ciphertext: hex.EncodeToString(e.Ciphertext),
		AuthTag:    hex.EncodeToString(e.AuthTag),
	})
}

// UnmarshalJSON decodes and validates the hex envelope representation.
// Any structural defect yields common.ErrMalformedEnvelope.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var j envelopeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedEnvelope, err)
	}

	iv, err := hex.DecodeString(j.IV)
	if err != nil {
		return fmt.Errorf("%w: iv is not valid hex", common.ErrMalformedEnvelope)
	}
	ct, err := hex.DecodeString(j.Ciphertext)
	if err != nil {
		return fmt.Errorf("%w: ciphertext is not valid hex", common.ErrMalformedEnvelope)
	}
	tag, err := hex.DecodeString(j.AuthTag)
	if err != nil {
		return fmt.Errorf("%w: auth tag is not valid hex", common.ErrMalformedEnvelope)
	}

	if len(iv) != IVSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", common.ErrMalformedEnvelope, IVSize, len(iv))
	}
	if len(tag) != TagSize {
		return fmt.Errorf("%w: auth tag must be %d bytes, got %d", common.ErrMalformedEnvelope, TagSize, len(tag))
	}

	e.IV, e.Ciphertext, e.AuthTag = iv, ct, tag
	return nil
}

// Value implements driver.Valuer so an Envelope column stores the JSON hex
// form. A nil receiver stores SQL NULL, which round-trips as Absent.
func (e *Envelope) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL scans to the zero envelope; repositories
// use nullable wrappers to map NULL to a nil *Envelope.
func (e *Envelope) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return fmt.Errorf("%w: cannot scan NULL into Envelope", common.ErrMalformedEnvelope)
	case []byte:
		return e.UnmarshalJSON(v)
	case string:
		return e.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("%w: unsupported column type %T", common.ErrMalformedEnvelope, src)
	}
}

// NullEnvelope adapts *Envelope for nullable columns: a NULL column scans to
// a nil Envelope (the Absent marker) instead of an error.
type NullEnvelope struct {
	Envelope *Envelope
}

// Scan implements sql.Scanner.
func (n *NullEnvelope) Scan(src any) error {
	if src == nil {
		n.Envelope = nil
		return nil
	}
	e := &Envelope{}
	if err := e.Scan(src); err != nil {
		return err
	}
	n.Envelope = e
	return nil
}

// Value implements driver.Valuer.
func (n NullEnvelope) Value() (driver.Value, error) {
	return n.Envelope.Value()
}

// newGCM builds the AEAD used everywhere in this package. The key must be
// exactly KeySize bytes.
func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}

// seal encrypts plaintext under key with a fresh random IV and splits the
// GCM output into ciphertext and tag.
func seal(plaintext, key []byte) (*Envelope, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - TagSize

	return &Envelope{
		IV:         iv,
		Ciphertext: sealed[:n],
		AuthTag:    sealed[n:],
	}, nil
}

// open verifies and decrypts an envelope. Tag verification failure yields
// common.ErrDecryptionFailed and no plaintext.
func open(e *Envelope, key []byte) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil envelope", common.ErrMalformedEnvelope)
	}
	if len(e.IV) != IVSize || len(e.AuthTag) != TagSize {
		return nil, fmt.Errorf("%w: bad iv or tag length", common.ErrMalformedEnvelope)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(e.Ciphertext)+TagSize)
	sealed = append(sealed, e.Ciphertext...)
	sealed = append(sealed, e.AuthTag...)

	plaintext, err := aead.Open(nil, e.IV, sealed, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}
