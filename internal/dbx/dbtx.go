// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// and helpers to run functions inside a transaction.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "DELETE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Permanent marks an error that must not be retried by WithTxRetry.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Stop wraps err so that WithTxRetry gives up immediately.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// RetryBase is the first pause between WithTxRetry attempts; later pauses
// grow exponentially with some jitter.
var RetryBase = 10 * time.Millisecond

// WithTxRetry runs fn through WithTx up to attempts times. Every attempt is
// a fresh transaction, so fn is re-executed in full and must be idempotent
// with respect to anything it does outside the database. Errors wrapped
// with Stop and context cancellation end the loop early. The last error is
// returned unwrapped from Permanent.
func WithTxRetry(ctx context.Context, db *sql.DB, attempts int, fn func(ctx context.Context, tx DBTX) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.WithJitterPercent(20, retry.NewExponential(RetryBase)))

	tries := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tries++
		err := WithTx(ctx, db, nil, fn)
		if err == nil {
			return nil
		}
		var p *Permanent
		if errors.As(err, &p) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	var p *Permanent
	if errors.As(err, &p) {
		return p.Err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("attempt %d: %w", tries, err)
	}
	return fmt.Errorf("giving up after %d attempts: %w", tries, err)
}
