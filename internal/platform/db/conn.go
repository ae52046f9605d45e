package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Queryable is the subset of pgx operations shared by pools, connections,
// and transactions. Repositories accept it so the same code path works
// whether or not the caller opened a transaction.
type Queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ConnFromContext returns the transaction stashed in ctx by RunInTx, or nil
// when the caller is not inside a transaction.
func ConnFromContext(ctx context.Context) Queryable {
	q, _ := ctx.Value(txKey).(Queryable)
	return q
}

// RunInTx begins a transaction, stashes it in the context, and invokes fn.
// Repositories that resolve their connection through ConnFromContext will
// then share the transaction, so a mutation and its audit entry commit or
// roll back together. The transaction commits when fn returns nil and rolls
// back otherwise.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, Queryable(tx))); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
