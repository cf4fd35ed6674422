package persons

import (
	"context"

	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

// Repository stores person records. All reads and writes are scoped to the
// owning user; rows carry envelopes only, never plaintext.
type Repository interface {
	Create(ctx context.Context, person *models.Person) (*models.Person, error)
	Update(ctx context.Context, person *models.Person) error
	GetByID(ctx context.Context, id, userID string) (*models.Person, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Person, error)
	Delete(ctx context.Context, id, userID string) error
}
