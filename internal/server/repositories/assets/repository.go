// Package assets persists assets, the roots of the containment hierarchy.
package assets

import (
	"context"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, asset *models.Asset) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	GetByUIID(ctx context.Context, uiid string) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset) error
	Delete(ctx context.Context, id string) error
}
