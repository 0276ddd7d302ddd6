package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/framous/server/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

type txKeyType struct{}

var txKey = txKeyType{}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// GetExecutor returns the transaction carried in ctx when one is open,
// otherwise the pool. Repos always go through this so multi-record transitions
// commit or roll back as one unit.
func GetExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}

type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

func (tm *TxManager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	ctxWithTx := context.WithValue(ctx, txKey, tx)
	if err := fn(ctxWithTx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		// Deferred constraints surface here rather than at statement time.
		return mapStoreErr(err)
	}
	return nil
}

// uniqueViolation is the postgres class 23 code for a unique constraint.
const uniqueViolation = "23505"

// mapStoreErr translates driver errors into the domain taxonomy: unique
// violations become ErrUniqueViolation, everything else ErrStoreUnavailable.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrUniqueViolation, pgErr.ConstraintName)
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
