package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

const selectTask = `SELECT id, uiid, equipment_id, name, description, usage_period_in_hour, period_in_month FROM tasks`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (id, uiid, equipment_id, name, description, usage_period_in_hour, period_in_month)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UIID, t.EquipmentID, t.Name, t.Description, t.UsagePeriodInHour, t.PeriodInMonth)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return r.get(ctx, selectTask+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUIID(ctx context.Context, uiid string) (*models.Task, error) {
	return r.get(ctx, selectTask+` WHERE uiid = $1`, uiid)
}

func (r *PostgresRepository) get(ctx context.Context, query, arg string) (*models.Task, error) {
	var t models.Task
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&t.ID, &t.UIID, &t.EquipmentID, &t.Name, &t.Description, &t.UsagePeriodInHour, &t.PeriodInMonth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) ListByEquipment(ctx context.Context, equipmentID string) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, selectTask+` WHERE equipment_id = $1 ORDER BY name`, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.UIID, &t.EquipmentID, &t.Name, &t.Description, &t.UsagePeriodInHour, &t.PeriodInMonth); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t *models.Task) error {
	query := `
		UPDATE tasks SET name = $2, description = $3, usage_period_in_hour = $4, period_in_month = $5
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.Description, t.UsagePeriodInHour, t.PeriodInMonth)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}
