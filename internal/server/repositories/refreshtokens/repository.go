package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	// DeleteAllForUser revokes every outstanding refresh token of a user,
	// used after a password reset.
	DeleteAllForUser(ctx context.Context, userID string) error
}
