package accesses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *models.AssetAccess) error {
	query := `INSERT INTO asset_accesses (asset_id, user_id, readonly) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, l.AssetID, l.UserID, l.ReadOnly); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, assetID, userID string) (*models.AssetAccess, error) {
	query := `SELECT asset_id, user_id, readonly FROM asset_accesses WHERE asset_id = $1 AND user_id = $2`

	l := &models.AssetAccess{}
	if err := r.db.QueryRowContext(ctx, query, assetID, userID).Scan(&l.AssetID, &l.UserID, &l.ReadOnly); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.AssetAccess, error) {
	return r.list(ctx, `SELECT asset_id, user_id, readonly FROM asset_accesses WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) ListByAsset(ctx context.Context, assetID string) ([]*models.AssetAccess, error) {
	return r.list(ctx, `SELECT asset_id, user_id, readonly FROM asset_accesses WHERE asset_id = $1`, assetID)
}

func (r *PostgresRepository) list(ctx context.Context, query, arg string) ([]*models.AssetAccess, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select asset accesses: %w", err)
	}
	defer rows.Close()

	var result []*models.AssetAccess
	for rows.Next() {
		var l models.AssetAccess
		if err := rows.Scan(&l.AssetID, &l.UserID, &l.ReadOnly); err != nil {
			return nil, err
		}
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountOwners returns the number of non read-only links of an asset.
func (r *PostgresRepository) CountOwners(ctx context.Context, assetID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM asset_accesses WHERE asset_id = $1 AND NOT readonly`
	if err := r.db.QueryRowContext(ctx, query, assetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, assetID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM asset_accesses WHERE asset_id = $1 AND user_id = $2`, assetID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete asset access: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}
