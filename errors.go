package goliath

import (
	"errors"
	"fmt"

	"github.com/malweka/GoliathData-sub001/errtranslator"
	"github.com/malweka/GoliathData-sub001/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrInvalidTransaction invalid transaction when you are trying to `Commit` or `Rollback`
	ErrInvalidTransaction = errors.New("no valid transaction")
	// ErrTransactionAlreadyStarted BeginTransaction called while a transaction is open
	ErrTransactionAlreadyStarted = errors.New("transaction already started")
	// ErrSessionClosed the session released its connection
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownEntity no entity bound to the value's type
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrUnknownStatement no mapped statement registered under the name
	ErrUnknownStatement = errors.New("unknown mapped statement")
	// ErrKeyNotGenerated a database generated key was neither returned nor queryable
	ErrKeyNotGenerated = errors.New("generated key not captured")
	// ErrInvalidData unsupported data
	ErrInvalidData = errors.New("unsupported data")
	// ErrDuplicatedKey unique or primary key constraint violated
	ErrDuplicatedKey = errtranslator.ErrDuplicatedKey
	// ErrForeignKeyViolated foreign key constraint violated
	ErrForeignKeyViolated = errtranslator.ErrForeignKeyViolated
)

// DataAccessError a statement failed against the database
type DataAccessError struct {
	SQL string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%v; sql: %s", e.Err, e.SQL)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}
