// Package tx carries a database transaction through context so stores from
// different packages can participate in one unit of work without knowing
// about each other.
package tx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a pgx transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a pgx transaction from context if present.
func From(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}

// Runner executes a function within a single transaction. The donation
// decision path uses it to keep the status transition and the inventory
// mutation atomic.
type Runner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgxRunner runs functions inside a pgxpool transaction.
type PgxRunner struct {
	pool *pgxpool.Pool
}

func NewPgxRunner(pool *pgxpool.Pool) *PgxRunner {
	return &PgxRunner{pool: pool}
}

func (r *PgxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Rollback(ctx)
	}()

	if err := fn(WithTx(ctx, t)); err != nil {
		return err
	}
	return t.Commit(ctx)
}

// PassthroughRunner executes the function directly. In-memory stores have no
// transactions; tests use this.
type PassthroughRunner struct{}

func (PassthroughRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
