// Package entries provides PostgreSQL-backed repositories for service log
// entries.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
)

const selectEntry = `SELECT id, uiid, equipment_id, task_id, name, date, age, remarks, ack FROM entries`

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
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

func scanEntry(s scanner) (*models.Entry, error) {
	var (
		e      models.Entry
		taskID sql.NullString
	)
	if err := s.Scan(&e.ID, &e.UIID, &e.EquipmentID, &taskID, &e.Name, &e.Date, &e.Age, &e.Remarks, &e.Ack); err != nil {
		return nil, err
	}
	if taskID.Valid {
		e.TaskID = &taskID.String
	}
	return &e, nil
}

func nullTaskID(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *id, Valid: true}
}

// Create inserts a new entry.
func (r *PostgresRepository) Create(ctx context.Context, e *models.Entry) error {
	query := `
		INSERT INTO entries (id, uiid, equipment_id, task_id, name, date, age, remarks, ack)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UIID, e.EquipmentID, nullTaskID(e.TaskID), e.Name, e.Date, e.Age, e.Remarks, e.Ack)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	return r.get(ctx, selectEntry+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUIID(ctx context.Context, uiid string) (*models.Entry, error) {
	return r.get(ctx, selectEntry+` WHERE uiid = $1`, uiid)
}

func (r *PostgresRepository) get(ctx context.Context, query, arg string) (*models.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByEquipment(ctx context.Context, equipmentID string) ([]*models.Entry, error) {
	return r.list(ctx, selectEntry+` WHERE equipment_id = $1 ORDER BY date DESC`, equipmentID)
}

// ListByTask returns all entries, acknowledged or not, for an
// (equipment, task) pair.
func (r *PostgresRepository) ListByTask(ctx context.Context, equipmentID, taskID string) ([]*models.Entry, error) {
	return r.list(ctx, selectEntry+` WHERE equipment_id = $1 AND task_id = $2 ORDER BY date DESC`, equipmentID, taskID)
}

func (r *PostgresRepository) ListOrphans(ctx context.Context, equipmentID string) ([]*models.Entry, error) {
	return r.list(ctx, selectEntry+` WHERE equipment_id = $1 AND task_id IS NULL ORDER BY date DESC`, equipmentID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
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

// Update rewrites the editable fields. The owning equipment never changes.
func (r *PostgresRepository) Update(ctx context.Context, e *models.Entry) error {
	query := `
		UPDATE entries SET task_id = $2, name = $3, date = $4, age = $5, remarks = $6, ack = $7
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, e.ID, nullTaskID(e.TaskID), e.Name, e.Date, e.Age, e.Remarks, e.Ack)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}

// Acknowledge marks the entry as confirmed (ack = true).
func (r *PostgresRepository) Acknowledge(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE entries SET ack = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge entry: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return dbx.ExpectOne(res, common.ErrorNotFound)
}
