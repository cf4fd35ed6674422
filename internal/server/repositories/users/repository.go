package users

import (
	"context"

	"github.com/dmitrijs2005/kinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateCredentials atomically replaces the password hash and the
	// wrapped user key (same underlying key, fresh wrapping).
	UpdateCredentials(ctx context.Context, userID string, passwordHash []byte, wrappedUserKey *cryptox.Envelope) error
}
