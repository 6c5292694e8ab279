// Package accesses persists the links granting users owner or read-only
// access to assets.
package accesses

import (
	"context"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, link *models.AssetAccess) error
	Get(ctx context.Context, assetID, userID string) (*models.AssetAccess, error)
	ListByUser(ctx context.Context, userID string) ([]*models.AssetAccess, error)
	ListByAsset(ctx context.Context, assetID string) ([]*models.AssetAccess, error)
	CountOwners(ctx context.Context, assetID string) (int, error)
	Delete(ctx context.Context, assetID, userID string) error
}
