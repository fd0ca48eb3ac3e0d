package main

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbPool is the process-wide connection pool, set in main and replaced by the
// test harness.
var dbPool *pgxpool.Pool

// querier is satisfied by *pgxpool.Pool and pgx.Tx alike, so store operations
// can run standalone or inside an ingestion transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
