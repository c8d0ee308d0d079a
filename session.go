package goliath

import (
	"context"
	"database/sql"
	"time"

	"github.com/malweka/GoliathData-sub001/hydrate"
	"github.com/malweka/GoliathData-sub001/logger"
	"github.com/malweka/GoliathData-sub001/mapping"
)

// Session one connection and at most one open transaction. A session is
// used by one goroutine at a time.
type Session struct {
	db       *DB
	ctx      context.Context
	conn     *sql.Conn
	tx       *sql.Tx
	hydrator *hydrate.Hydrator

	// Logger traces every statement the session runs
	Logger logger.Interface
}

// NewSession reserves a connection from the pool
func (db *DB) NewSession(ctx context.Context) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := db.sqlDB.Conn(ctx)
	if err != nil {
		return nil, &DataAccessError{Err: db.Dialect.Translate(err)}
	}

	s := &Session{db: db, ctx: ctx, conn: conn, Logger: db.Logger}
	s.hydrator = hydrate.New(db.builder, s)
	s.hydrator.Converters = db.Converters
	s.hydrator.Logger = db.Logger
	return s, nil
}

// Debug returns the session tracing at info level
func (s *Session) Debug() *Session {
	s.Logger = s.Logger.LogMode(logger.Info)
	return s
}

// Context the context commands run under
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) check() error {
	if s.conn == nil {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) pool() ConnPool {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// InTransaction reports whether a transaction is open
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

// BeginTransaction opens a transaction on the session's connection
func (s *Session) BeginTransaction(opts ...*sql.TxOptions) error {
	if err := s.check(); err != nil {
		return err
	}
	if s.tx != nil {
		return ErrTransactionAlreadyStarted
	}

	var opt *sql.TxOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	tx, err := s.conn.BeginTx(s.ctx, opt)
	if err != nil {
		return s.dataAccessError("BEGIN", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction
func (s *Session) Commit() error {
	return s.finish("COMMIT", TxCommitter.Commit)
}

// Rollback rolls the open transaction back
func (s *Session) Rollback() error {
	return s.finish("ROLLBACK", TxCommitter.Rollback)
}

func (s *Session) finish(name string, fc func(TxCommitter) error) error {
	if s.tx == nil {
		return ErrInvalidTransaction
	}
	tx := s.tx
	s.tx = nil

	begin := time.Now()
	err := fc(tx)
	s.trace(s.ctx, begin, name, nil, -1, err)
	if err != nil {
		return s.dataAccessError(name, err)
	}
	return nil
}

// Transaction runs fc inside a transaction, committed when fc succeeds and
// rolled back when it fails or panics
func (s *Session) Transaction(fc func(s *Session) error, opts ...*sql.TxOptions) (err error) {
	if err = s.BeginTransaction(opts...); err != nil {
		return err
	}

	panicked := true
	defer func() {
		if (panicked || err != nil) && s.tx != nil {
			if rbErr := s.Rollback(); rbErr != nil {
				s.Logger.Error(s.ctx, "rollback failed: %v", rbErr)
			}
		}
	}()

	err = fc(s)
	if err == nil {
		err = s.Commit()
	}

	panicked = false
	return
}

// implicit runs fc in the open transaction, or in one it begins and commits.
// A failure leaves the transaction open for the caller to roll back.
func (s *Session) implicit(fc func() error) error {
	if err := s.check(); err != nil {
		return err
	}
	if s.tx != nil {
		return fc()
	}
	if err := s.BeginTransaction(); err != nil {
		return err
	}
	if err := fc(); err != nil {
		return err
	}
	return s.Commit()
}

// Close rolls back any open transaction and returns the connection to the pool
func (s *Session) Close() error {
	if err := s.check(); err != nil {
		return err
	}
	if s.tx != nil {
		if err := s.Rollback(); err != nil {
			s.Logger.Warn(s.ctx, "rollback on close: %v", err)
		}
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// commandContext bounds ctx by the configured command timeout
func (s *Session) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.db.CommandTimeout > 0 {
		return context.WithTimeout(ctx, time.Duration(s.db.CommandTimeout)*time.Second)
	}
	return context.WithCancel(ctx)
}

func (s *Session) dataAccessError(query string, err error) error {
	return &DataAccessError{SQL: query, Err: s.db.Dialect.Translate(err)}
}

// command labels ctx with the entity and kind of the statement about to run
func command(ctx context.Context, kind string, e *mapping.Entity) context.Context {
	c := logger.Command{Kind: kind}
	if e != nil {
		c.Entity = e.FullName()
	}
	return logger.WithCommand(ctx, c)
}

func (s *Session) trace(ctx context.Context, begin time.Time, query string, args []interface{}, rows int64, err error) {
	c, _ := logger.CommandFrom(ctx)
	c.Dialect = s.db.Dialect.Name()
	c.InTransaction = s.tx != nil
	ctx = logger.WithCommand(ctx, c)
	s.Logger.Trace(ctx, begin, func() (string, int64) {
		if filter, ok := s.Logger.(logger.ParamsFilter); ok {
			query, args = filter.ParamsFilter(ctx, query, args...)
		}
		return logger.ExplainSQL(query, s.db.Dialect.NumericPlaceholder(), `'`, args...), rows
	}, err)
}
