package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bakery_backend/pkg/utils"
)

// TxRunner runs a function inside a transaction and retries it when the database reports a conflict.
type TxRunner struct {
	db         *sql.DB
	dialect    Dialect
	maxRetries int
	backoff    time.Duration
}

// NewTxRunner creates a TxRunner. maxRetries counts attempts after the first one.
func NewTxRunner(db *sql.DB, dialect Dialect, maxRetries int) *TxRunner {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TxRunner{db: db, dialect: dialect, maxRetries: maxRetries, backoff: 20 * time.Millisecond}
}

// DB returns the pool the runner opens transactions on.
func (r *TxRunner) DB() *sql.DB {
	return r.db
}

// Dialect returns the SQL dialect of the underlying database.
func (r *TxRunner) Dialect() Dialect {
	return r.dialect
}

// Run executes fn in a transaction. fn must do every read and write through the given tx.
// Errors returned by fn that are not storage conflicts abort the transaction and are returned unchanged.
// When every attempt hits a conflict the result wraps ErrTxConflict.
func (r *TxRunner) Run(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			utils.LogDebug("Retrying transaction", map[string]interface{}{"attempt": attempt, "cause": lastErr.Error()})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}

		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTxConflict) && !IsRetryable(err) {
			return err
		}
		lastErr = err
	}
	if errors.Is(lastErr, ErrTxConflict) {
		return fmt.Errorf("giving up after %d attempts: %w", r.maxRetries+1, lastErr)
	}
	return fmt.Errorf("%w: giving up after %d attempts: %w", ErrTxConflict, r.maxRetries+1, lastErr)
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDBError(err, "beginning transaction")
	}
	defer tx.Rollback() // Rollback is a no-op if the transaction has been committed.

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapDBError(err, "committing transaction")
	}
	return nil
}
