package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"posgrocery/internal/apierror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// runTx executes fn inside a serializable GORM transaction when db is
// available, or calls fn(nil) directly when db is nil (unit test mode).
// A bounded lock_timeout turns lock waits into retryable conflicts instead
// of unbounded blocking.
func runTx(ctx context.Context, db *gorm.DB, lockTimeoutMS int, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lockTimeoutMS > 0 {
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeoutMS)).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return translateTxError(err)
}

// translateTxError maps storage-engine concurrency failures onto the error
// taxonomy. Serialization failures (40001), deadlocks (40P01) and lock
// timeouts (55P03) all become retryable conflicts; everything else passes
// through untouched for the caller to classify.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return apierror.Conflict(apierror.CodeLockTimeout, "transaction conflicted, retry")
		}
	}
	return err
}

// isDuplicateKey reports whether err is a unique-constraint violation —
// the arbiter for idempotency-key races.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
