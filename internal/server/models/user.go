// Package models defines the server-side persistence models.
package models

import (
	"time"

	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
)

// User is one account in the record store.
//
// PasswordHash (bcrypt) gates authentication only and is unrelated to
// encryption: leaking it does not expose data. EncryptionSalt is generated
// once at registration and never changes. WrappedUserKey is the user's
// symmetric key wrapped under the process master key; the underlying key
// bytes never change across password resets — only the wrapping and the
// password hash do.
type User struct {
	ID             string
	Email          string
	DisplayName    string
	PasswordHash   []byte
	EncryptionSalt []byte
	WrappedUserKey *cryptox.Envelope
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
