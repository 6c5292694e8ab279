package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/accesses"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/assets"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/equipments"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/images"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := NewPostgresRepositoryManager()

	var _ users.Repository = m.Users(db)
	var _ assets.Repository = m.Assets(db)
	var _ accesses.Repository = m.Accesses(db)
	var _ equipments.Repository = m.Equipments(db)
	var _ tasks.Repository = m.Tasks(db)
	var _ entries.Repository = m.Entries(db)
	var _ images.Repository = m.Images(db)

	if m.Users(db) == nil || m.Assets(db) == nil || m.Accesses(db) == nil || m.Equipments(db) == nil ||
		m.Tasks(db) == nil || m.Entries(db) == nil || m.Images(db) == nil {
		t.Fatal("nil repository")
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectPing()

	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" || dsn != "postgres://x" {
			t.Fatalf("unexpected open args %q %q", driver, dsn)
		}
		return db, nil
	}
	defer func() { sqlOpen = orig }()

	got, err := Open(context.Background(), "postgres://x")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	_ = got.Close()
}

func TestOpen_PingFails(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectPing().WillReturnError(errors.New("refused"))

	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }
	defer func() { sqlOpen = orig }()

	if _, err := Open(context.Background(), "dsn"); err == nil {
		t.Fatal("expected ping error")
	}
}
