package core

import (
	"context"
	"fmt"
)

type transactionKey struct{}

// WithTransaction returns a context carrying tx. Drivers run every statement
// issued with that context inside tx.
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFrom returns the transaction carried by ctx, or nil.
func TransactionFrom(ctx context.Context) Transaction {
	if tx, ok := ctx.Value(transactionKey{}).(Transaction); ok {
		return tx
	}
	return nil
}

// TransactionFunc runs with a context bound to an open transaction.
type TransactionFunc func(txCtx context.Context) error

// RunTransaction runs fn in a transaction of driver: committed when fn
// returns nil, rolled back otherwise. When ctx already carries a transaction,
// fn joins it and the outermost caller decides the outcome.
//
//	err := core.RunTransaction(ctx, driver, func(txCtx context.Context) error {
//		if _, err := orders.Find(txCtx, id); err != nil {
//			return err
//		}
//		return driver.Delete(txCtx, orderModel, core.Field("id").Eq(id))
//	})
func RunTransaction(ctx context.Context, driver Driver, fn TransactionFunc) error {
	if TransactionFrom(ctx) != nil {
		return fn(ctx)
	}
	tx, err := driver.Transaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(WithTransaction(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
