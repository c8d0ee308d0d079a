package goliath

import (
	"context"
	"database/sql"
)

// ConnPool statement execution shared by *sql.Conn and *sql.Tx
type ConnPool interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxCommitter transaction finisher
type TxCommitter interface {
	Commit() error
	Rollback() error
}
