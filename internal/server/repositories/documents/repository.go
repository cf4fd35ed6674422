package documents

import (
	"context"

	"github.com/dmitrijs2005/kinkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	GetByID(ctx context.Context, id, userID string) (*models.Document, error)
	ListByPerson(ctx context.Context, personID, userID string) ([]*models.Document, error)
	MarkUploaded(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id, userID string) error
}
