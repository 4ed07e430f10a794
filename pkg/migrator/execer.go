package migrator

import (
	"context"
	"database/sql"
)

// Execer is the database handle migrations and the envgen store run against.
// *sql.DB, *sql.Tx and *sql.Conn all satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner is implemented by handles that can open a transaction.
// Multi-statement writes use one when the Execer offers it and run
// statement by statement otherwise.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
