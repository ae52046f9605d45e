package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeQueryable struct{}

func (fakeQueryable) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, nil
}
func (fakeQueryable) QueryRow(context.Context, string, ...interface{}) pgx.Row { return nil }
func (fakeQueryable) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func TestConnFromContext_Empty(t *testing.T) {
	if q := ConnFromContext(context.Background()); q != nil {
		t.Errorf("expected nil outside a transaction, got %v", q)
	}
}

func TestConnFromContext_CarriesTx(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey, Queryable(fakeQueryable{}))
	if q := ConnFromContext(ctx); q == nil {
		t.Error("expected stashed queryable")
	}
}
