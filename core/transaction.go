package core

import (
	"context"
	"fmt"
)

type transactionKey struct{}

// WithTransaction returns a context carrying tx. Backends consult it on every
// call, so model operations given the returned context join the transaction.
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFrom returns the transaction stored in ctx, or nil.
func TransactionFrom(ctx context.Context) Transaction {
	tx, _ := ctx.Value(transactionKey{}).(Transaction)
	return tx
}

// TransactionFunc is the unit of work passed to RunTransaction.
type TransactionFunc func(txCtx context.Context) error

// RunTransaction runs fn inside a transaction opened on backend. It commits
// when fn returns nil and rolls back when fn fails or panics. Nested calls
// open independent transactions.
//
//	err := core.RunTransaction(ctx, backend, func(txCtx context.Context) error {
//		id, err := authors.Insert(txCtx, core.Record{"name": "Frank"})
//		if err != nil {
//			return err
//		}
//		_, err = books.Insert(txCtx, core.Record{"title": "Dune", "author_id": id})
//		return err
//	})
func RunTransaction(ctx context.Context, backend Backend, fn TransactionFunc) error {
	tx, err := backend.Transaction(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(WithTransaction(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback: %w (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
