package goliath

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/malweka/GoliathData-sub001/hydrate"
	"github.com/malweka/GoliathData-sub001/lazy"
	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

// QueryBody narrows a Select. Where references columns as "<alias>"."<column>",
// see sqlgen.SelectBuilder.PropertyRef.
type QueryBody struct {
	Where   string
	Params  []sqlgen.Param
	OrderBy []string
	Limit   int
	Offset  int
}

func (q QueryBody) apply(sb *sqlgen.SelectBuilder) *sqlgen.SelectBuilder {
	if q.Where != "" {
		sb.Where(q.Where, q.Params...)
	}
	if len(q.OrderBy) > 0 {
		sb.OrderBy(q.OrderBy...)
	}
	return sb.Limit(q.Limit).Offset(q.Offset)
}

// Insert inserts value; with recursive set its OneToMany children and owning
// ManyToMany join rows too
func (s *Session) Insert(value interface{}, recursive bool) error {
	e, err := s.db.EntityOf(value)
	if err != nil {
		return err
	}
	batch, err := s.db.builder.BuildInsert(e, value, recursive)
	if err != nil {
		return err
	}
	return s.Execute(batch)
}

// Update updates value; with recursive set its loaded children are saved and
// owning ManyToMany join rows rewritten
func (s *Session) Update(value interface{}, recursive bool) error {
	e, err := s.db.EntityOf(value)
	if err != nil {
		return err
	}
	batch, err := s.db.builder.BuildUpdate(e, value, recursive)
	if err != nil {
		return err
	}
	return s.Execute(batch)
}

// Save inserts value when its key is unsaved, updates it otherwise
func (s *Session) Save(value interface{}, recursive bool) error {
	e, err := s.db.EntityOf(value)
	if err != nil {
		return err
	}
	unsaved, err := s.db.builder.IsUnsaved(e, value)
	if err != nil {
		return err
	}
	if unsaved {
		return s.Insert(value, recursive)
	}
	return s.Update(value, recursive)
}

// Delete deletes value; with recursive set its loaded OneToMany children and
// owning ManyToMany join rows first
func (s *Session) Delete(value interface{}, recursive bool) error {
	e, err := s.db.EntityOf(value)
	if err != nil {
		return err
	}
	batch, err := s.db.builder.BuildDelete(e, value, recursive)
	if err != nil {
		return err
	}
	return s.Execute(batch)
}

// Execute runs a statement tree in the open transaction or an implicit one
func (s *Session) Execute(batch *sqlgen.BatchSqlOperation) error {
	return s.implicit(func() error {
		return s.execute(s.ctx, batch)
	})
}

// Exec runs a command. params are sql.NamedArg or sqlgen.Param values bound
// to @name markers, or positional arguments when query has no marker.
func (s *Session) Exec(query string, params ...interface{}) (rowsAffected int64, err error) {
	text, args, err := s.bind(query, params)
	if err != nil {
		return 0, err
	}
	err = s.implicit(func() error {
		ctx, cancel := s.commandContext(s.ctx)
		defer cancel()

		result, err := s.exec(ctx, text, args)
		if err != nil {
			return err
		}
		rowsAffected, err = result.RowsAffected()
		return err
	})
	return
}

// bind compiles query through the statement cache and orders params by its markers
func (s *Session) bind(query string, params []interface{}) (string, []interface{}, error) {
	stmt := s.db.stmts.Compile(query, s.db.Dialect)
	if len(stmt.Names) == 0 {
		return stmt.SQL, params, nil
	}
	named, ok := sqlgen.Params(params...)
	if !ok {
		return "", nil, fmt.Errorf("%w: named markers need sql.NamedArg or sqlgen.Param arguments", ErrInvalidData)
	}
	args, err := stmt.Bind(named)
	if err != nil {
		return "", nil, err
	}
	return stmt.SQL, args, nil
}

// Query runs query and hydrates its rows into dest, a pointer to a struct or
// a slice of the entity bound to its type. Columns are labelled <alias>_<column>.
func (s *Session) Query(dest interface{}, query string, params ...interface{}) error {
	e, err := s.db.EntityOf(dest)
	if err != nil {
		return err
	}
	return s.query(s.ctx, e, dest, query, params)
}

func (s *Session) query(ctx context.Context, e *mapping.Entity, dest interface{}, query string, params []interface{}) error {
	if err := s.check(); err != nil {
		return err
	}
	text, args, err := s.bind(query, params)
	if err != nil {
		return err
	}

	ctx, cancel := s.commandContext(command(ctx, "SELECT", e))
	defer cancel()

	begin := time.Now()
	rows, err := s.pool().QueryContext(ctx, text, args...)
	s.trace(ctx, begin, text, args, -1, err)
	if err != nil {
		return s.dataAccessError(text, err)
	}
	defer rows.Close()

	if err := s.hydrator.Serialize(ctx, hydrate.NewRowsReader(rows), e, dest); err != nil {
		var convErr *hydrate.ConversionError
		if errors.As(err, &convErr) || errors.Is(err, ErrRecordNotFound) || errors.Is(err, hydrate.ErrInvalidDestination) {
			return err
		}
		return s.dataAccessError(text, err)
	}
	return nil
}

func (s *Session) selectBuilder(value interface{}) (*mapping.Entity, *sqlgen.SelectBuilder, error) {
	e, err := s.db.EntityOf(value)
	if err != nil {
		return nil, nil, err
	}
	return e, s.db.builder.Select(e), nil
}

// Select reads the entities body matches into dest
func (s *Session) Select(dest interface{}, body QueryBody) error {
	e, sb, err := s.selectBuilder(dest)
	if err != nil {
		return err
	}
	query, params, err := body.apply(sb).Build()
	if err != nil {
		return err
	}
	return s.query(s.ctx, e, dest, query, paramArgs(params))
}

// Count counts the entities of value's type body matches; paging is ignored
func (s *Session) Count(value interface{}, body QueryBody) (int64, error) {
	_, sb, err := s.selectBuilder(value)
	if err != nil {
		return 0, err
	}
	if body.Where != "" {
		sb.Where(body.Where, body.Params...)
	}
	query, params, err := sb.Count()
	if err != nil {
		return 0, err
	}
	return s.scalar(query, paramArgs(params))
}

func (s *Session) scalar(query string, params []interface{}) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	text, args, err := s.bind(query, params)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.commandContext(s.ctx)
	defer cancel()

	var n int64
	begin := time.Now()
	err = s.pool().QueryRowContext(ctx, text, args...).Scan(&n)
	s.trace(ctx, begin, text, args, 1, err)
	if err != nil {
		return 0, s.dataAccessError(text, err)
	}
	return n, nil
}

// GetByKey reads the entity whose key holds keys into dest, a struct pointer.
// Returns ErrRecordNotFound when no row matches.
func (s *Session) GetByKey(dest interface{}, keys ...interface{}) error {
	e, sb, err := s.selectBuilder(dest)
	if err != nil {
		return err
	}
	query, params, err := sb.WhereKey(keys...).Build()
	if err != nil {
		return err
	}
	return s.query(s.ctx, e, dest, query, paramArgs(params))
}

// ExecuteStatement runs the mapped statement name as a command
func (s *Session) ExecuteStatement(name string, params ...interface{}) (int64, error) {
	stmt, err := s.db.statement(name)
	if err != nil {
		return 0, err
	}
	return s.Exec(stmt.Body, params...)
}

// QueryStatement runs the mapped statement name, hydrating its rows into dest
// as its result map entity, or the entity of dest's type when it names none
func (s *Session) QueryStatement(dest interface{}, name string, params ...interface{}) error {
	stmt, err := s.db.statement(name)
	if err != nil {
		return err
	}

	var e *mapping.Entity
	if stmt.ResultMap != "" {
		e, err = s.db.Model.ResolveEntity(stmt.ResultMap)
	} else {
		e, err = s.db.EntityOf(dest)
	}
	if err != nil {
		return err
	}
	return s.query(s.ctx, e, dest, stmt.Body, params)
}

// Load runs a stored lazy relation query, appending the hydrated rows to dest
func (s *Session) Load(ctx context.Context, q lazy.Query, dest interface{}) error {
	e, err := s.db.Model.ResolveEntity(q.Entity)
	if err != nil {
		return err
	}
	params := make([]interface{}, len(q.Params))
	for i, p := range q.Params {
		params[i] = sqlgen.Param{Name: p.Name, Value: p.Value}
	}
	return s.query(ctx, e, dest, q.SQL, params)
}

func paramArgs(params []sqlgen.Param) []interface{} {
	args := make([]interface{}, len(params))
	for i, p := range params {
		args[i] = p
	}
	return args
}
