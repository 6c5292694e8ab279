package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/server/maintenance"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type CreateEquipmentRequest struct {
	AssetUIID string `json:"asset" validate:"required"`
	EquipmentRequest
}

// EquipmentRequest carries the editable fields of an equipment.
type EquipmentRequest struct {
	Name               string    `json:"name" validate:"required,max=255"`
	Brand              string    `json:"brand" validate:"max=255"`
	Model              string    `json:"model" validate:"max=255"`
	AgeAcquisitionType string    `json:"ageAcquisitionType" validate:"required,oneof=time manualEntry tracker"`
	Age                int       `json:"age" validate:"gte=0"`
	Installation       time.Time `json:"installation" validate:"required"`
}

type EquipmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	cascade     *CascadeService
	clock       maintenance.Clock
	logger      logging.Logger
}

func NewEquipmentService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, cascade *CascadeService,
	clock maintenance.Clock, logger logging.Logger) *EquipmentService {
	return &EquipmentService{db: db, repomanager: m, access: access, cascade: cascade, clock: clock, logger: logger}
}

func (s *EquipmentService) Create(ctx context.Context, userID string, req CreateEquipmentRequest) (*models.Equipment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	asset, err := s.access.AuthorizeMutation(ctx, userID, req.AssetUIID, VerbWrite)
	if err != nil {
		return nil, err
	}

	uiid, err := common.NewUIID()
	if err != nil {
		return nil, fmt.Errorf("generate uiid: %w", err)
	}

	eq := &models.Equipment{
		ID:           uuid.NewString(),
		UIID:         uiid,
		AssetID:      asset.ID,
		AgeUpdatedAt: s.clock.Now(),
	}
	apply(eq, req.EquipmentRequest)

	if err := s.repomanager.Equipments(s.db).Create(ctx, eq); err != nil {
		return nil, fmt.Errorf("error creating equipment: %w", err)
	}

	s.logger.Info(ctx, "equipment created", "asset", asset.UIID, "equipment", eq.UIID)
	return eq, nil
}

func apply(eq *models.Equipment, req EquipmentRequest) {
	eq.Name = req.Name
	eq.Brand = req.Brand
	eq.Model = req.Model
	eq.AgeAcquisitionType = models.AgeAcquisitionType(req.AgeAcquisitionType)
	eq.Age = req.Age
	eq.Installation = req.Installation
}

func (s *EquipmentService) Get(ctx context.Context, userID, uiid string) (*models.Equipment, error) {
	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, uiid, VerbRead)
	return eq, err
}

func (s *EquipmentService) List(ctx context.Context, userID, assetUIID string) ([]*models.Equipment, error) {
	asset, err := s.access.ResolveByPublicID(ctx, userID, assetUIID)
	if err != nil {
		return nil, err
	}

	eqs, err := s.repomanager.Equipments(s.db).ListByAsset(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing equipment: %w", err)
	}
	return eqs, nil
}

func (s *EquipmentService) Update(ctx context.Context, userID, uiid string, req EquipmentRequest) (*models.Equipment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, uiid, VerbWrite)
	if err != nil {
		return nil, err
	}

	if req.Age != eq.Age {
		eq.AgeUpdatedAt = s.clock.Now()
	}
	apply(eq, req)

	if err := s.repomanager.Equipments(s.db).Update(ctx, eq); err != nil {
		return nil, fmt.Errorf("error updating equipment: %w", err)
	}
	return eq, nil
}

// UpdateAge records a new hour-meter reading. Equipment in time mode has
// no reading to update.
func (s *EquipmentService) UpdateAge(ctx context.Context, userID, uiid string, age int) (*models.Equipment, error) {
	if age < 0 {
		return nil, common.Validationf("age must be at least 0")
	}

	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, uiid, VerbWrite)
	if err != nil {
		return nil, err
	}
	if eq.AgeAcquisitionType == models.AgeAcquisitionTime {
		return nil, common.Validationf("equipment %s derives its age from time", eq.UIID)
	}

	now := s.clock.Now()
	if err := s.repomanager.Equipments(s.db).UpdateAge(ctx, eq.ID, age, now); err != nil {
		return nil, fmt.Errorf("error updating equipment age: %w", err)
	}

	eq.Age = age
	eq.AgeUpdatedAt = now
	s.logger.Debug(ctx, "equipment age updated", "equipment", eq.UIID, "age", age)
	return eq, nil
}

func (s *EquipmentService) Delete(ctx context.Context, userID, uiid string) (*CascadeReport, error) {
	return s.cascade.DeleteEquipment(ctx, userID, uiid)
}
