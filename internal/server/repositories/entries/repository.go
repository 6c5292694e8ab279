package entries

import (
	"context"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	GetByUIID(ctx context.Context, uiid string) (*models.Entry, error)
	// ListByEquipment returns every entry of an equipment, orphans included.
	ListByEquipment(ctx context.Context, equipmentID string) ([]*models.Entry, error)
	ListByTask(ctx context.Context, equipmentID, taskID string) ([]*models.Entry, error)
	ListOrphans(ctx context.Context, equipmentID string) ([]*models.Entry, error)
	Update(ctx context.Context, entry *models.Entry) error
	Acknowledge(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
