package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CreateEntryRequest logs a service occurrence. TaskUIID is empty for an
// entry attached to the equipment only; Ack defaults to true.
type CreateEntryRequest struct {
	EquipmentUIID string `json:"equipment" validate:"required"`
	TaskUIID      string `json:"task"`
	EntryRequest
	Ack *bool `json:"ack"`
}

// EntryRequest carries the editable fields of an entry.
type EntryRequest struct {
	Name    string    `json:"name" validate:"required,max=255"`
	Date    time.Time `json:"date" validate:"required"`
	Age     int       `json:"age" validate:"gte=0"`
	Remarks string    `json:"remarks" validate:"max=4096"`
}

type EntryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	cascade     *CascadeService
	logger      logging.Logger
}

func NewEntryService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, cascade *CascadeService, logger logging.Logger) *EntryService {
	return &EntryService{db: db, repomanager: m, access: access, cascade: cascade, logger: logger}
}

func (s *EntryService) Create(ctx context.Context, userID string, req CreateEntryRequest) (*models.Entry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, req.EquipmentUIID, VerbWrite)
	if err != nil {
		return nil, err
	}

	var taskID *string
	if req.TaskUIID != "" {
		task, err := s.repomanager.Tasks(s.db).GetByUIID(ctx, req.TaskUIID)
		if err != nil {
			return nil, notFound("task", req.TaskUIID, err)
		}
		if task.EquipmentID != eq.ID {
			return nil, common.Validationf("task %s does not belong to equipment %s", task.UIID, eq.UIID)
		}
		taskID = &task.ID
	}

	uiid, err := common.NewUIID()
	if err != nil {
		return nil, fmt.Errorf("generate uiid: %w", err)
	}

	ack := true
	if req.Ack != nil {
		ack = *req.Ack
	}

	entry := &models.Entry{
		ID:          uuid.NewString(),
		UIID:        uiid,
		EquipmentID: eq.ID,
		TaskID:      taskID,
		Name:        req.Name,
		Date:        req.Date,
		Age:         req.Age,
		Remarks:     req.Remarks,
		Ack:         ack,
	}
	if err := s.repomanager.Entries(s.db).Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("error creating entry: %w", err)
	}

	s.logger.Info(ctx, "entry created", "equipment", eq.UIID, "entry", entry.UIID, "ack", ack)
	return entry, nil
}

func (s *EntryService) Get(ctx context.Context, userID, uiid string) (*models.Entry, error) {
	entry, _, err := s.access.AuthorizeEntry(ctx, userID, uiid, VerbRead)
	return entry, err
}

// List returns entries of an equipment, or of one of its tasks when
// taskUIID is set. Unacknowledged entries are included.
func (s *EntryService) List(ctx context.Context, userID, equipmentUIID, taskUIID string) ([]*models.Entry, error) {
	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, equipmentUIID, VerbRead)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Entries(s.db)
	if taskUIID == "" {
		entries, err := repo.ListByEquipment(ctx, eq.ID)
		if err != nil {
			return nil, fmt.Errorf("error listing entries: %w", err)
		}
		return entries, nil
	}

	task, err := s.repomanager.Tasks(s.db).GetByUIID(ctx, taskUIID)
	if err != nil {
		return nil, notFound("task", taskUIID, err)
	}
	if task.EquipmentID != eq.ID {
		return nil, fmt.Errorf("task %s: %w", taskUIID, common.ErrorNotFound)
	}

	entries, err := repo.ListByTask(ctx, eq.ID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return entries, nil
}

// ListOrphans returns the entries of an equipment that belong to no task.
func (s *EntryService) ListOrphans(ctx context.Context, userID, equipmentUIID string) ([]*models.Entry, error) {
	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, equipmentUIID, VerbRead)
	if err != nil {
		return nil, err
	}

	entries, err := s.repomanager.Entries(s.db).ListOrphans(ctx, eq.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return entries, nil
}

func (s *EntryService) Update(ctx context.Context, userID, uiid string, req EntryRequest) (*models.Entry, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	entry, _, err := s.access.AuthorizeEntry(ctx, userID, uiid, VerbWrite)
	if err != nil {
		return nil, err
	}

	entry.Name = req.Name
	entry.Date = req.Date
	entry.Age = req.Age
	entry.Remarks = req.Remarks

	if err := s.repomanager.Entries(s.db).Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("error updating entry: %w", err)
	}
	return entry, nil
}

// Acknowledge confirms a provisional entry so it counts for due dates.
func (s *EntryService) Acknowledge(ctx context.Context, userID, uiid string) (*models.Entry, error) {
	entry, _, err := s.access.AuthorizeEntry(ctx, userID, uiid, VerbWrite)
	if err != nil {
		return nil, err
	}
	if entry.Ack {
		return entry, nil
	}

	if err := s.repomanager.Entries(s.db).Acknowledge(ctx, entry.ID); err != nil {
		return nil, fmt.Errorf("error acknowledging entry: %w", err)
	}
	entry.Ack = true
	return entry, nil
}

func (s *EntryService) Delete(ctx context.Context, userID, uiid string) (*CascadeReport, error) {
	return s.cascade.DeleteEntry(ctx, userID, uiid)
}
