package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbx_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT);`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('ok')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, db), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('fail')`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)

	require.Equal(t, 0, countRows(t, db), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countRows(t, db), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('panic')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
}

func TestWithTxRetry_RetriesUntilSuccess(t *testing.T) {
	db := setupRetryDB(t)

	calls := 0
	err := WithTxRetry(context.Background(), db, 3, func(ctx context.Context, tx DBTX) error {
		calls++
		_, e := tx.ExecContext(ctx, `INSERT INTO r(v) VALUES ('x')`)
		require.NoError(t, e)
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM r`).Scan(&n))
	require.Equal(t, 1, n, "failed attempts must be rolled back")
}

func TestWithTxRetry_GivesUp(t *testing.T) {
	db := setupRetryDB(t)

	calls := 0
	err := WithTxRetry(context.Background(), db, 2, func(ctx context.Context, tx DBTX) error {
		calls++
		return errors.New("still broken")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "giving up after 2 attempts")
	require.Equal(t, 2, calls)
}

func TestWithTxRetry_StopIsNotRetried(t *testing.T) {
	db := setupRetryDB(t)

	sentinel := errors.New("invariant")
	calls := 0
	err := WithTxRetry(context.Background(), db, 5, func(ctx context.Context, tx DBTX) error {
		calls++
		return Stop(sentinel)
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestWithTxRetry_CanceledContext(t *testing.T) {
	db := setupRetryDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithTxRetry(ctx, db, 3, func(ctx context.Context, tx DBTX) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}

func TestStop_Nil(t *testing.T) {
	require.NoError(t, Stop(nil))
}

func setupRetryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbx_retry_"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS r (id INTEGER PRIMARY KEY, v TEXT);`)
	require.NoError(t, err)
	return db
}

func TestExpectOne(t *testing.T) {
	notFound := errors.New("nf")

	require.NoError(t, ExpectOne(driverResult(1), notFound))
	require.ErrorIs(t, ExpectOne(driverResult(0), notFound), notFound)
	require.ErrorContains(t, ExpectOne(driverResult(2), notFound), "unexpected rows affected: 2")
}

func TestNullTime(t *testing.T) {
	require.False(t, NullTime(time.Time{}).Valid)
	now := time.Now()
	nt := NullTime(now)
	require.True(t, nt.Valid)
	require.Equal(t, now, nt.Time)
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }
