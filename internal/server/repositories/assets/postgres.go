package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

const selectAsset = `SELECT id, uiid, user_id, name, brand, model, manufacture_date, created_at FROM assets`

// PostgresRepository implements asset storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Asset) error {
	query := `
		INSERT INTO assets (id, uiid, user_id, name, brand, model, manufacture_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.UIID, a.UserID, a.Name, a.Brand, a.Model, dbx.NullTime(a.ManufactureDate)).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	return r.get(ctx, selectAsset+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUIID(ctx context.Context, uiid string) (*models.Asset, error) {
	return r.get(ctx, selectAsset+` WHERE uiid = $1`, uiid)
}

func (r *PostgresRepository) get(ctx context.Context, query, arg string) (*models.Asset, error) {
	var (
		a  models.Asset
		md sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.UIID, &a.UserID, &a.Name, &a.Brand, &a.Model, &md, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.ManufactureDate = md.Time
	return &a, nil
}

// Update rewrites the descriptive fields of an asset.
func (r *PostgresRepository) Update(ctx context.Context, a *models.Asset) error {
	query := `UPDATE assets SET name = $2, brand = $3, model = $4, manufacture_date = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, a.ID, a.Name, a.Brand, a.Model, dbx.NullTime(a.ManufactureDate))
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}
