package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AssetRequest carries the editable fields of an asset.
type AssetRequest struct {
	Name            string    `json:"name" validate:"required,max=255"`
	Brand           string    `json:"brand" validate:"max=255"`
	Model           string    `json:"model" validate:"max=255"`
	ManufactureDate time.Time `json:"manufactureDate"`
}

type AssetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	cascade     *CascadeService
	logger      logging.Logger
}

func NewAssetService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, cascade *CascadeService, logger logging.Logger) *AssetService {
	return &AssetService{db: db, repomanager: m, access: access, cascade: cascade, logger: logger}
}

// Create stores a new asset and makes userID its owner in one transaction.
func (s *AssetService) Create(ctx context.Context, userID string, req AssetRequest) (*models.Asset, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	uiid, err := common.NewUIID()
	if err != nil {
		return nil, fmt.Errorf("generate uiid: %w", err)
	}

	asset := &models.Asset{
		ID:              uuid.NewString(),
		UIID:            uiid,
		UserID:          userID,
		Name:            req.Name,
		Brand:           req.Brand,
		Model:           req.Model,
		ManufactureDate: req.ManufactureDate,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Assets(tx).Create(ctx, asset); err != nil {
			return err
		}
		return s.repomanager.Accesses(tx).Create(ctx, &models.AssetAccess{AssetID: asset.ID, UserID: userID})
	})
	if err != nil {
		return nil, fmt.Errorf("error creating asset: %w", err)
	}

	s.logger.Info(ctx, "asset created", "asset", asset.UIID, "user", userID)
	return asset, nil
}

func (s *AssetService) Get(ctx context.Context, userID, uiid string) (*models.Asset, error) {
	return s.access.ResolveByPublicID(ctx, userID, uiid)
}

// List returns owned and shared assets alike.
func (s *AssetService) List(ctx context.Context, userID string) ([]*models.Asset, error) {
	return s.access.ResolveAccessibleAssets(ctx, userID)
}

func (s *AssetService) Update(ctx context.Context, userID, uiid string, req AssetRequest) (*models.Asset, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	asset, err := s.access.AuthorizeMutation(ctx, userID, uiid, VerbWrite)
	if err != nil {
		return nil, err
	}

	asset.Name = req.Name
	asset.Brand = req.Brand
	asset.Model = req.Model
	asset.ManufactureDate = req.ManufactureDate

	if err := s.repomanager.Assets(s.db).Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("error updating asset: %w", err)
	}
	return asset, nil
}

func (s *AssetService) Delete(ctx context.Context, userID, uiid string) (*CascadeReport, error) {
	return s.cascade.DeleteAsset(ctx, userID, uiid)
}
