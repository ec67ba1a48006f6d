// Package tx defines the transactional boundary shared by services and stores.
// Services call Runner.RunInTx; stores pick up the active transaction from the
// context so they do not need to know whether they run inside one.
package tx

import (
	"context"
	"database/sql"
	"time"
)

// DefaultTimeout bounds a transaction when the caller context has no deadline.
const DefaultTimeout = 5 * time.Second

// Runner runs fn inside a single atomic unit of work. If fn returns an error
// every write made through the context passed to fn is discarded.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DBTX is the subset of *sql.DB and *sql.Tx used by Postgres stores.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Executor returns the transaction bound to ctx, or db when there is none.
func Executor(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

type lockKeyCtx struct{}

// WithLockKey names the record a transaction is about to serialize on, for
// runners that lock in-process instead of in the database.
func WithLockKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, lockKeyCtx{}, key)
}

func lockKey(ctx context.Context) string {
	key, _ := ctx.Value(lockKeyCtx{}).(string)
	return key
}

func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
