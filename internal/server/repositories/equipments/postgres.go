package equipments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

const selectEquipment = `SELECT id, uiid, asset_id, name, brand, model, age_acquisition_type, age, installation, age_updated_at FROM equipments`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEquipment(s scanner) (*models.Equipment, error) {
	var (
		e    models.Equipment
		mode string
	)
	if err := s.Scan(&e.ID, &e.UIID, &e.AssetID, &e.Name, &e.Brand, &e.Model, &mode, &e.Age, &e.Installation, &e.AgeUpdatedAt); err != nil {
		return nil, err
	}
	e.AgeAcquisitionType = models.AgeAcquisitionType(mode)
	return &e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Equipment) error {
	query := `
		INSERT INTO equipments (id, uiid, asset_id, name, brand, model, age_acquisition_type, age, installation, age_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UIID, e.AssetID, e.Name, e.Brand, e.Model, string(e.AgeAcquisitionType), e.Age, e.Installation, e.AgeUpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Equipment, error) {
	return r.get(ctx, selectEquipment+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUIID(ctx context.Context, uiid string) (*models.Equipment, error) {
	return r.get(ctx, selectEquipment+` WHERE uiid = $1`, uiid)
}

func (r *PostgresRepository) get(ctx context.Context, query, arg string) (*models.Equipment, error) {
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByAsset(ctx context.Context, assetID string) ([]*models.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, selectEquipment+` WHERE asset_id = $1 ORDER BY name`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to select equipments: %w", err)
	}
	defer rows.Close()

	var result []*models.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Equipment) error {
	query := `
		UPDATE equipments SET name = $2, brand = $3, model = $4, age_acquisition_type = $5, installation = $6
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, e.ID, e.Name, e.Brand, e.Model, string(e.AgeAcquisitionType), e.Installation)
	if err != nil {
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}

// UpdateAge stores a new usage reading taken at the given time.
func (r *PostgresRepository) UpdateAge(ctx context.Context, id string, age int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE equipments SET age = $2, age_updated_at = $3 WHERE id = $1`, id, age, at)
	if err != nil {
		return fmt.Errorf("failed to update equipment age: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM equipments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}
