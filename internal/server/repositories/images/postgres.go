// Package images persists image metadata. The bytes live in object storage
// under StorageKey.
package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

const selectImage = `SELECT id, uiid, parent_kind, parent_id, storage_key, title, upload_status, created_at FROM images`

// PostgresRepository implements image storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(s scanner) (*models.Image, error) {
	var (
		img  models.Image
		kind string
	)
	if err := s.Scan(&img.ID, &img.UIID, &kind, &img.Parent.ID, &img.StorageKey, &img.Title, &img.UploadStatus, &img.CreatedAt); err != nil {
		return nil, err
	}
	img.Parent.Kind = models.ParentKind(kind)
	return &img, nil
}

func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) error {
	query := `
		INSERT INTO images (id, uiid, parent_kind, parent_id, storage_key, title, upload_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		img.ID, img.UIID, string(img.Parent.Kind), img.Parent.ID, img.StorageKey, img.Title, img.UploadStatus).Scan(&img.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUIID(ctx context.Context, uiid string) (*models.Image, error) {
	img, err := scanImage(r.db.QueryRowContext(ctx, selectImage+` WHERE uiid = $1`, uiid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

// ListByParent returns the images attached to one entity.
func (r *PostgresRepository) ListByParent(ctx context.Context, parent models.ParentRef) ([]*models.Image, error) {
	rows, err := r.db.QueryContext(ctx,
		selectImage+` WHERE parent_kind = $1 AND parent_id = $2 ORDER BY created_at`, string(parent.Kind), parent.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to select images: %w", err)
	}
	defer rows.Close()

	var result []*models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkUploaded marks the image as uploaded (upload_status='completed').
// Exactly one row must be affected.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE images SET upload_status = 'completed' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}
