package models

import (
	"time"

	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
)

// Document is an encrypted attachment (scan, photo) belonging to a person
// record. The object body lives in S3-compatible storage, encrypted by the
// client under a per-document data key; EncryptedDataKey is that key wrapped
// under the owner's user key.
type Document struct {
	ID               string
	PersonID         string
	UserID           string
	FileName         string
	StorageKey       string
	EncryptedDataKey *cryptox.Envelope
	UploadStatus     string
	CreatedAt        time.Time
}

// Document upload statuses.
const (
	UploadStatusPending  = "pending"
	UploadStatusUploaded = "uploaded"
)
