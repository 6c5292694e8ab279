package images

import (
	"context"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByUIID(ctx context.Context, uiid string) (*models.Image, error)
	ListByParent(ctx context.Context, parent models.ParentRef) ([]*models.Image, error)
	MarkUploaded(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
