package goliath

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/malweka/GoliathData-sub001/sqlgen"
)

// execute runs batch on the session's connection: every node's key
// generation steps, then its operations by priority, then its sub
// operations in append order
func (s *Session) execute(ctx context.Context, batch *sqlgen.BatchSqlOperation) error {
	for _, step := range batch.Steps() {
		var err error
		if step.KeyGen != nil {
			err = s.generateKey(ctx, step.KeyGen)
		} else {
			err = s.executeOperation(ctx, step.Operation)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) executeOperation(ctx context.Context, op *sqlgen.SqlOperation) error {
	stmt := s.db.stmts.Compile(op.SQL, s.db.Dialect)
	args, err := stmt.Bind(op.Params)
	if err != nil {
		return err
	}

	ctx, cancel := s.commandContext(command(ctx, string(op.Kind), op.Entity))
	defer cancel()

	if op.ReturnsKey && op.GeneratedKey != nil {
		var key interface{}
		begin := time.Now()
		err := s.pool().QueryRowContext(ctx, stmt.SQL, args...).Scan(&key)
		s.trace(ctx, begin, stmt.SQL, args, 1, err)
		if err != nil {
			return s.dataAccessError(stmt.SQL, err)
		}
		return op.GeneratedKey.Apply(key)
	}

	result, err := s.exec(ctx, stmt.SQL, args)
	if err != nil {
		return err
	}
	if k := op.GeneratedKey; k != nil && k.Query == "" && s.db.Dialect.SupportsLastInsertID() {
		id, err := result.LastInsertId()
		if err != nil {
			return s.dataAccessError(stmt.SQL, err)
		}
		return k.Apply(id)
	}
	return nil
}

// generateKey runs the query of a database key step not already satisfied
// by its statement's result
func (s *Session) generateKey(ctx context.Context, k *sqlgen.KeyGenOperationInfo) error {
	if k.Done() {
		return nil
	}
	if k.Query == "" {
		return fmt.Errorf("%w: %s.%s", ErrKeyNotGenerated, k.Entity.FullName(), k.Key.Name())
	}

	ctx, cancel := s.commandContext(command(ctx, "KEY", k.Entity))
	defer cancel()

	var v interface{}
	begin := time.Now()
	err := s.pool().QueryRowContext(ctx, k.Query).Scan(&v)
	s.trace(ctx, begin, k.Query, nil, 1, err)
	if err != nil {
		return s.dataAccessError(k.Query, err)
	}
	return k.Apply(v)
}

func (s *Session) exec(ctx context.Context, query string, args []interface{}) (sql.Result, error) {
	begin := time.Now()
	result, err := s.pool().ExecContext(ctx, query, args...)
	rows := int64(-1)
	if err == nil {
		if n, rerr := result.RowsAffected(); rerr == nil {
			rows = n
		}
	}
	s.trace(ctx, begin, query, args, rows, err)
	if err != nil {
		return nil, s.dataAccessError(query, err)
	}
	return result, nil
}
