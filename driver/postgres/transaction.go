package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leandroluk/recordkit/core"
)

// querier is the subset shared by the pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// transaction adapts pgx.Tx to core.Transaction.
type transaction struct {
	tx pgx.Tx
}

var _ core.Transaction = (*transaction)(nil)

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// querierFrom returns the transaction stored in ctx when it belongs to this
// driver, otherwise the pool.
func (d *Driver) querierFrom(ctx context.Context) querier {
	if tx, ok := core.TransactionFrom(ctx).(*transaction); ok {
		return tx.tx
	}
	return d.pool
}
