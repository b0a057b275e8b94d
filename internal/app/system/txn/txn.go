// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotSupported is returned by Run when the deployment cannot execute
// multi-document transactions (standalone mongod, some emulators).
var ErrNotSupported = errors.New("mongo deployment cannot run multi-document transactions")

// Run executes fn inside a MongoDB transaction on db's client.
//
// There is no non-transactional fallback: callers that rely on Run for
// read-verify-write atomicity get ErrNotSupported instead of a weaker
// guarantee. Transient transaction errors (write conflicts) are retried by
// the driver, so fn must be safe to re-run. Errors returned by fn are passed
// through unchanged.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	var fnErr error
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		fnErr = fn(sc)
		return nil, fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	if IsNotSupported(err) {
		if log != nil {
			log.Error("transactions unavailable; a replica set is required", zap.Error(err))
		}
		return fmt.Errorf("%w: %v", ErrNotSupported, err)
	}
	return err
}

// notSupportedCodes are server codes seen when transactions are unavailable:
// 20 IllegalOperation, 51 (legacy), 263 OperationNotSupportedInTransaction.
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

var notSupportedKeywords = []string{
	"transaction",
	"replica set",
	"session",
	"not supported",
	"illegal operation",
}

// IsNotSupported reports whether err indicates the server cannot run
// transactions. Message matching requires at least two keywords so that a
// plain "transaction failed" is not misread.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return notSupportedCodes[ce.Code]
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range notSupportedKeywords {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
