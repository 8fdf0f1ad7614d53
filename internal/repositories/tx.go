package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTxRunner runs fn inside a MongoDB multi-document transaction. It needs a
// replica set or sharded cluster.
type MongoTxRunner struct {
	client *mongo.Client
}

func NewMongoTxRunner(client *mongo.Client) *MongoTxRunner {
	return &MongoTxRunner{client: client}
}

func (r *MongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return apperror.StorageUnavailable(err, "start session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		return apperror.Conflict("concurrent update, retry the request")
	}
	return apperror.StorageUnavailable(err, "transaction aborted")
}

// SequentialTxRunner runs fn without a transaction. Callers rely on idempotent
// writes plus the follow-graph reconciler to repair partial failures.
type SequentialTxRunner struct{}

func (SequentialTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
