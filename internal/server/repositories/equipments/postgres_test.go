package equipments

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cols = []string{"id", "uiid", "asset_id", "name", "brand", "model", "age_acquisition_type", "age", "installation", "age_updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	inst := time.Date(2015, 1, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO equipments \(id, uiid, asset_id, name, brand, model, age_acquisition_type, age, installation, age_updated_at\)`).
		WithArgs("e1", "eqx", "a1", "Engine", "Volvo", "D2", "manualEntry", 12345, inst, inst).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Equipment{
		ID: "e1", UIID: "eqx", AssetID: "a1", Name: "Engine", Brand: "Volvo", Model: "D2",
		AgeAcquisitionType: models.AgeAcquisitionManualEntry, Age: 12345, Installation: inst, AgeUpdatedAt: inst,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUIID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM equipments WHERE uiid = \$1`).WithArgs("eqx").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("e1", "eqx", "a1", "Engine", "", "", "tracker", 10, now, now))
	mock.ExpectQuery(`FROM equipments WHERE uiid = \$1`).WithArgs("none").
		WillReturnError(sql.ErrNoRows)

	e, err := repo.GetByUIID(context.Background(), "eqx")
	require.NoError(t, err)
	assert.Equal(t, models.AgeAcquisitionTracker, e.AgeAcquisitionType)
	assert.Equal(t, 10, e.Age)

	_, err = repo.GetByUIID(context.Background(), "none")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByAsset(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM equipments WHERE asset_id = \$1 ORDER BY name`).WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e1", "u1", "a1", "Engine", "", "", "time", 0, now, now).
			AddRow("e2", "u2", "a1", "Sail", "", "", "manualEntry", 3, now, now))

	list, err := repo.ListByAsset(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e2", list[1].ID)
}

func TestListByAsset_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM equipments WHERE asset_id`).WillReturnError(errors.New("boom"))
	_, err := repo.ListByAsset(context.Background(), "a1")
	assert.ErrorContains(t, err, "failed to select equipments")
}

func TestUpdateAndUpdateAge(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE equipments SET name = \$2, brand = \$3, model = \$4, age_acquisition_type = \$5, installation = \$6`).
		WithArgs("e1", "Engine", "b", "m", "time", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE equipments SET age = \$2, age_updated_at = \$3 WHERE id = \$1`).
		WithArgs("e1", 200, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Update(context.Background(), &models.Equipment{
		ID: "e1", Name: "Engine", Brand: "b", Model: "m", AgeAcquisitionType: models.AgeAcquisitionTime, Installation: now,
	}))
	assert.ErrorIs(t, repo.UpdateAge(context.Background(), "e1", 200, now), common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM equipments WHERE id = \$1`).WithArgs("e1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "e1"))
}
