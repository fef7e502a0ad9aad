package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leandroluk/golem-admin/core"
)

// querier is what pgxpool.Pool and pgx.Tx have in common.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresTransaction adapts pgx.Tx to core.Transaction.
type postgresTransaction struct {
	tx pgx.Tx
}

func (t *postgresTransaction) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Rollback after Commit is a no-op.
func (t *postgresTransaction) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}

// conn returns the transaction carried by ctx when it belongs to this
// driver, the pool otherwise.
func (driver *PostgresDriver) conn(ctx context.Context) querier {
	if t, ok := core.TransactionFrom(ctx).(*postgresTransaction); ok {
		return t.tx
	}
	return driver.pool
}
