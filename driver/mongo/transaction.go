package mongo

import (
	"context"
	"fmt"

	"github.com/leandroluk/golem-admin/core"
	mongodb "go.mongodb.org/mongo-driver/mongo"
)

// mongoTransaction adapts a session with an open transaction to
// core.Transaction. Commit and Rollback both end the session.
type mongoTransaction struct {
	session mongodb.Session
}

func (t *mongoTransaction) Commit(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	if err := t.session.CommitTransaction(ctx); err != nil {
		return fmt.Errorf("mongo: commit: %w", err)
	}
	return nil
}

func (t *mongoTransaction) Rollback(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	if err := t.session.AbortTransaction(ctx); err != nil {
		return fmt.Errorf("mongo: abort: %w", err)
	}
	return nil
}

// Transaction starts a session with a transaction. It needs a replica set
// or a sharded cluster.
func (driver *MongoDriver) Transaction(ctx context.Context) (core.Transaction, error) {
	session, err := driver.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("mongo: start session: %w", err)
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, fmt.Errorf("mongo: start transaction: %w", err)
	}
	return &mongoTransaction{session: session}, nil
}

// withSession binds ctx to the session of the transaction it carries, so
// collection calls made with it join the transaction.
func (driver *MongoDriver) withSession(ctx context.Context) context.Context {
	if t, ok := core.TransactionFrom(ctx).(*mongoTransaction); ok {
		return mongodb.NewSessionContext(ctx, t.session)
	}
	return ctx
}
