package models

import (
	"time"

	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
)

// Person is one genealogical record. Every sensitive attribute is
// independently an Envelope or NULL (the Absent marker), so presence of a
// value is visible in the store while its content is not, and editing one
// attribute never re-encrypts the others.
//
// The set of protected attributes is closed: adding one means a migration
// plus changes here, in the repository, and in the service — deliberately
// machine-checkable rather than a dynamically shaped blob.
type Person struct {
	ID         string
	UserID     string
	FirstName  *cryptox.Envelope
	MiddleName *cryptox.Envelope
	LastName   *cryptox.Envelope
	Nickname   *cryptox.Envelope
	BirthDate  *cryptox.Envelope
	DeathDate  *cryptox.Envelope
	Notes      *cryptox.Envelope
	Address    *cryptox.Envelope
	Phone      *cryptox.Envelope
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
