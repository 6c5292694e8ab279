package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/metrics"
	"github.com/dmitrijs2005/equipkeeper/internal/server/maintenance"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// statusConcurrency bounds the equipment computed in parallel by AssetStatus.
const statusConcurrency = 8

type CreateTaskRequest struct {
	EquipmentUIID string `json:"equipment" validate:"required"`
	TaskRequest
}

// TaskRequest carries the editable fields of a task. UsagePeriodInHour
// is -1 when the task is not tracked by usage.
type TaskRequest struct {
	Name              string `json:"name" validate:"required,max=255"`
	Description       string `json:"description" validate:"max=4096"`
	UsagePeriodInHour int    `json:"usagePeriodInHour" validate:"gte=-1,ne=0"`
	PeriodInMonth     int    `json:"periodInMonth" validate:"gte=1"`
}

// TaskService manages tasks and computes their status on every read.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *AccessService
	cascade     *CascadeService
	calc        *maintenance.Calculator
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, access *AccessService, cascade *CascadeService,
	calc *maintenance.Calculator, logger logging.Logger, mt *metrics.Metrics) *TaskService {
	return &TaskService{db: db, repomanager: m, access: access, cascade: cascade, calc: calc, logger: logger, metrics: mt}
}

func (s *TaskService) Create(ctx context.Context, userID string, req CreateTaskRequest) (*models.TaskView, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, req.EquipmentUIID, VerbWrite)
	if err != nil {
		return nil, err
	}

	uiid, err := common.NewUIID()
	if err != nil {
		return nil, fmt.Errorf("generate uiid: %w", err)
	}

	task := &models.Task{
		ID:                uuid.NewString(),
		UIID:              uiid,
		EquipmentID:       eq.ID,
		Name:              req.Name,
		Description:       req.Description,
		UsagePeriodInHour: req.UsagePeriodInHour,
		PeriodInMonth:     req.PeriodInMonth,
	}
	if err := s.repomanager.Tasks(s.db).Create(ctx, task); err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}

	s.logger.Info(ctx, "task created", "equipment", eq.UIID, "task", task.UIID)
	return s.view(ctx, task, eq, nil)
}

// Get returns a task with its freshly computed status.
func (s *TaskService) Get(ctx context.Context, userID, uiid string) (*models.TaskView, error) {
	task, eq, err := s.access.AuthorizeTask(ctx, userID, uiid, VerbRead)
	if err != nil {
		return nil, err
	}

	entries, err := s.repomanager.Entries(s.db).ListByTask(ctx, eq.ID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return s.view(ctx, task, eq, entries)
}

// List returns the tasks of an equipment with their status.
func (s *TaskService) List(ctx context.Context, userID, equipmentUIID string) ([]models.TaskView, error) {
	eq, _, err := s.access.AuthorizeEquipment(ctx, userID, equipmentUIID, VerbRead)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, eq)
}

func (s *TaskService) Update(ctx context.Context, userID, uiid string, req TaskRequest) (*models.TaskView, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	task, eq, err := s.access.AuthorizeTask(ctx, userID, uiid, VerbWrite)
	if err != nil {
		return nil, err
	}

	task.Name = req.Name
	task.Description = req.Description
	task.UsagePeriodInHour = req.UsagePeriodInHour
	task.PeriodInMonth = req.PeriodInMonth

	if err := s.repomanager.Tasks(s.db).Update(ctx, task); err != nil {
		return nil, fmt.Errorf("error updating task: %w", err)
	}

	entries, err := s.repomanager.Entries(s.db).ListByTask(ctx, eq.ID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}
	return s.view(ctx, task, eq, entries)
}

func (s *TaskService) Delete(ctx context.Context, userID, uiid string) (*CascadeReport, error) {
	return s.cascade.DeleteTask(ctx, userID, uiid)
}

// AssetStatus computes every task of an asset and reports the worst level
// per equipment. Equipment is processed concurrently; the result keeps
// the repository order.
func (s *TaskService) AssetStatus(ctx context.Context, userID, assetUIID string) ([]models.EquipmentStatus, error) {
	asset, err := s.access.ResolveByPublicID(ctx, userID, assetUIID)
	if err != nil {
		return nil, err
	}

	eqs, err := s.repomanager.Equipments(s.db).ListByAsset(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing equipment: %w", err)
	}

	out := make([]models.EquipmentStatus, len(eqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statusConcurrency)

	for i, eq := range eqs {
		g.Go(func() error {
			views, err := s.views(gctx, eq)
			if err != nil {
				return fmt.Errorf("equipment %s: %w", eq.UIID, err)
			}

			levels := make([]models.Level, 0, len(views))
			for _, v := range views {
				levels = append(levels, v.Status.Level)
			}
			out[i] = models.EquipmentStatus{Equipment: eq, Level: maintenance.Worst(levels...), Tasks: views}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TaskService) views(ctx context.Context, eq *models.Equipment) ([]models.TaskView, error) {
	tasks, err := s.repomanager.Tasks(s.db).ListByEquipment(ctx, eq.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	entries, err := s.repomanager.Entries(s.db).ListByEquipment(ctx, eq.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}

	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		v, err := s.view(ctx, t, eq, entries)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *TaskService) view(ctx context.Context, task *models.Task, eq *models.Equipment, entries []*models.Entry) (*models.TaskView, error) {
	st, err := s.calc.Status(task, eq, entries)
	if err != nil {
		return nil, reportInvariant(ctx, s.logger, s.metrics, err)
	}
	s.metrics.ObserveLevel(int(st.Level))
	return &models.TaskView{Task: task, Status: st}, nil
}
