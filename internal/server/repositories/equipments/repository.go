// Package equipments persists equipment items of assets.
package equipments

import (
	"context"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, eq *models.Equipment) error
	GetByID(ctx context.Context, id string) (*models.Equipment, error)
	GetByUIID(ctx context.Context, uiid string) (*models.Equipment, error)
	ListByAsset(ctx context.Context, assetID string) ([]*models.Equipment, error)
	Update(ctx context.Context, eq *models.Equipment) error
	UpdateAge(ctx context.Context, id string, age int, at time.Time) error
	Delete(ctx context.Context, id string) error
}
