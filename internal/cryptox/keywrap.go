package cryptox

import "fmt"

// WrapKey AEAD-encrypts a symmetric key under a wrapping key and returns
// the persisted envelope. Each call generates a fresh random IV, so wrapping
// the same key twice never produces the same envelope.
//
// Two wrappings exist in the system: a user key under the process master key
// (this is what makes password reset without data loss possible — only a
// process holding the master key can recover the user key, independent of
// the password), and a document data key under a user key.
func WrapKey(plainKey, wrappingKey []byte) (*Envelope, error) {
	if len(plainKey) != KeySize {
		return nil, fmt.Errorf("wrapped key must be %d bytes, got %d", KeySize, len(plainKey))
	}
	return seal(plainKey, wrappingKey)
}

// UnwrapKey recovers the symmetric key from an envelope produced by WrapKey.
// Tag verification failure (wrong wrapping key, corruption, tampering)
// yields common.ErrDecryptionFailed and no key material.
func UnwrapKey(e *Envelope, wrappingKey []byte) ([]byte, error) {
	key, err := open(e, wrappingKey)
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("unwrapped key has unexpected size %d", len(key))
	}
	return key, nil
}
