package core

import (
	"context"
	"database/sql"
)

type (
	// DBExecutor is the statement surface the SQL repositories run on.
	// Both *sqlx.DB and *sqlx.Tx satisfy it, so a query helper can run
	// against the pool or inside a transaction unchanged.
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		Rebind(query string) string
	}

	// DBTransactor is an executor bound to an open transaction.
	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

// DBOrdering is a single ORDER BY term.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
