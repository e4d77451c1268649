package mongo

import (
	"context"

	"github.com/leandroluk/recordkit/core"
	"go.mongodb.org/mongo-driver/mongo"
)

// transaction wraps a session with an open transaction. The session ends
// on commit or rollback.
type transaction struct {
	session mongo.Session
}

var _ core.Transaction = (*transaction)(nil)

func (t *transaction) Commit(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	return t.session.CommitTransaction(ctx)
}

func (t *transaction) Rollback(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	return t.session.AbortTransaction(ctx)
}

// withSession binds the transaction stored in ctx, if it belongs to this
// driver, to the operation context.
func withSession(ctx context.Context) context.Context {
	if tx, ok := core.TransactionFrom(ctx).(*transaction); ok {
		return mongo.NewSessionContext(ctx, tx.session)
	}
	return ctx
}
