package cryptox

// EncryptField encrypts one plaintext attribute under a user key. Empty
// plaintext returns (nil, nil): the explicit Absent marker, never an
// envelope of an empty string. Presence or absence of a value is therefore
// visible in the store even though its content is not.
//
// Each protected attribute is encrypted independently rather than as one
// combined blob, so editing one field never touches the others and a single
// field can be decrypted without materializing the whole record.
func EncryptField(plaintext string, userKey []byte) (*Envelope, error) {
	if plaintext == "" {
		return nil, nil
	}
	return seal([]byte(plaintext), userKey)
}

// DecryptField recovers the plaintext of one attribute. The Absent marker
// (nil envelope) yields the empty string. Tag verification failure yields
// common.ErrDecryptionFailed — never partial or garbage plaintext.
func DecryptField(e *Envelope, userKey []byte) (string, error) {
	if e == nil {
		return "", nil
	}
	plaintext, err := open(e, userKey)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
