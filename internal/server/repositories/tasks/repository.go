// Package tasks persists the maintenance tasks of equipment.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	GetByUIID(ctx context.Context, uiid string) (*models.Task, error)
	ListByEquipment(ctx context.Context, equipmentID string) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}
