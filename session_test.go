package goliath_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goliath "github.com/malweka/GoliathData-sub001"
	"github.com/malweka/GoliathData-sub001/dialect"
	"github.com/malweka/GoliathData-sub001/logger"
	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

func TestInsertRunsOrderBeforeLineItems(t *testing.T) {
	s, mock := newMockSession(t, &dialect.Postgres{}, nil)

	order := &Order{Number: "A-1", Customer: &Customer{Id: 7}}
	order.LineItems.Set([]*LineItem{{Quantity: 1}, {Quantity: 2}})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "orders" ("number", "customer_id") VALUES ($1, $2) RETURNING "id"`).
		WithArgs("A-1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO "line_items" ("id", "quantity", "order_id") VALUES ($1, $2, $3)`).
		WithArgs(sqlmock.AnyArg(), int64(1), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "line_items" ("id", "quantity", "order_id") VALUES ($1, $2, $3)`).
		WithArgs(sqlmock.AnyArg(), int64(2), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Insert(order, true))
	assert.Equal(t, int64(42), order.Id)
	assert.False(t, s.InTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSubtypeSharesGeneratedKey(t *testing.T) {
	s, mock := newMockSession(t, &dialect.SQLite{}, nil)

	manager := &Manager{Employee: Employee{Name: "Ann"}, Level: 3}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "employees" ("name") VALUES (?1)`).
		WithArgs("Ann").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`INSERT INTO "managers" ("employee_id", "level") VALUES (?1, ?2)`).
		WithArgs(int64(11), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Insert(manager, false))
	assert.Equal(t, int64(11), manager.Id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceKeyRunsBeforeInsert(t *testing.T) {
	s, mock := newMockSession(t, &dialect.Postgres{}, nil)

	invoice := &Invoice{Amount: 9.5}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT nextval('invoices_id_seq')`).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(100)))
	mock.ExpectExec(`INSERT INTO "invoices" ("id", "amount") VALUES ($1, $2)`).
		WithArgs(int64(100), 9.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Insert(invoice, false))
	assert.Equal(t, int64(100), invoice.Id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureLeavesTransactionOpen(t *testing.T) {
	s, mock := newMockSession(t, &dialect.SQLite{}, nil)

	boom := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "employees" ("name") VALUES (?1)`).WillReturnError(boom)
	mock.ExpectRollback()

	err := s.Insert(&Manager{Employee: Employee{Name: "Ann"}}, false)
	var dataErr *goliath.DataAccessError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, `INSERT INTO "employees" ("name") VALUES (?1)`, dataErr.SQL)
	assert.ErrorIs(t, err, boom)

	assert.True(t, s.InTransaction())
	require.NoError(t, s.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExplicitTransaction(t *testing.T) {
	s, mock := newMockSession(t, &dialect.SQLite{}, nil)

	assert.ErrorIs(t, s.Commit(), goliath.ErrInvalidTransaction)
	assert.ErrorIs(t, s.Rollback(), goliath.ErrInvalidTransaction)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "employees" SET "name" = ?1 WHERE "id" = ?2`).
		WithArgs("Grace", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "customers" WHERE id = ?1`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.BeginTransaction())
	assert.ErrorIs(t, s.BeginTransaction(), goliath.ErrTransactionAlreadyStarted)

	require.NoError(t, s.Update(&Employee{Id: 5, Name: "Grace"}, false))
	n, err := s.Exec(`DELETE FROM "customers" WHERE id = @id`, sqlgen.Param{Name: "id", Value: int64(9)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, s.InTransaction(), "commands join the open transaction")

	require.NoError(t, s.Commit())
	assert.ErrorIs(t, s.Commit(), goliath.ErrInvalidTransaction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s, mock := newMockSession(t, &dialect.SQLite{}, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.Transaction(func(tx *goliath.Session) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.InTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosedSession(t *testing.T) {
	s, mock := newMockSession(t, &dialect.SQLite{}, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()
	require.NoError(t, s.BeginTransaction())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Close(), goliath.ErrSessionClosed)
	assert.ErrorIs(t, s.BeginTransaction(), goliath.ErrSessionClosed)
	_, err := s.Exec("DELETE FROM customers")
	assert.ErrorIs(t, err, goliath.ErrSessionClosed)
	assert.ErrorIs(t, s.Query(&[]*Customer{}, "SELECT 1"), goliath.ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommandTimeout(t *testing.T) {
	s, mock := newMockSession(t, &dialect.SQLite{}, &goliath.Config{CommandTimeout: 1})

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM customers`).
		WillDelayFor(3 * time.Second).
		WillReturnResult(sqlmock.NewResult(0, 0))

	begin := time.Now()
	_, err := s.Exec(`DELETE FROM customers`)
	var dataErr *goliath.DataAccessError
	assert.ErrorAs(t, err, &dataErr)
	assert.Less(t, time.Since(begin), 3*time.Second)
}

func TestUnknownEntity(t *testing.T) {
	s, _ := newMockSession(t, &dialect.SQLite{}, nil)

	type Unmapped struct{ Id int64 }
	assert.ErrorIs(t, s.Insert(&Unmapped{}, false), goliath.ErrUnknownEntity)
	assert.ErrorIs(t, s.Insert(42, false), goliath.ErrInvalidData)
}

func TestBindOverridesTypeName(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := goliath.OpenDB(&dialect.SQLite{}, sqlDB, &goliath.Config{Model: salesModel(t)})
	require.NoError(t, err)

	type Client struct {
		Id   int64
		Name string
	}
	require.NoError(t, db.Bind("Customer", Client{}))
	e, err := db.EntityOf([]*Client{})
	require.NoError(t, err)
	assert.Equal(t, "Customer", e.Name)

	var mappingErr *mapping.MappingError
	assert.ErrorAs(t, db.Bind("Nope", Client{}), &mappingErr)

	s, err := db.NewSession(context.Background())
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "customers" ("name") VALUES (?1)`).
		WithArgs("Ada").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	client := &Client{Name: "Ada"}
	require.NoError(t, s.Insert(client, false))
	assert.Equal(t, int64(3), client.Id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRequiresModel(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = goliath.OpenDB(&dialect.SQLite{}, sqlDB, nil)
	assert.ErrorIs(t, err, goliath.ErrModelRequired)
}

func TestOpenRejectsCyclicModel(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	m := mapping.NewModel(mapping.ProjectSettings{})
	for _, names := range [][2]string{{"X", "Y"}, {"Y", "X"}} {
		_, err := mapping.NewEntityBuilder(names[0], nil).Key("Id", "int64").ManyToOne("Next", names[1]).BuildInto(m)
		require.NoError(t, err)
	}

	db, err := goliath.OpenDB(&dialect.SQLite{}, sqlDB, &goliath.Config{Model: m, Logger: logger.Discard})
	assert.Nil(t, db)
	assert.ErrorIs(t, err, mapping.ErrCyclicReference)
}

type commandRecorder struct {
	logger.Interface
	commands []logger.Command
}

func (r *commandRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	c, _ := logger.CommandFrom(ctx)
	r.commands = append(r.commands, c)
}

func TestTraceLabelsCommands(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer sqlDB.Close()

	rec := &commandRecorder{Interface: logger.Discard}
	db, err := goliath.OpenDB(&dialect.SQLite{}, sqlDB, &goliath.Config{Model: salesModel(t), Logger: rec})
	require.NoError(t, err)
	s, err := db.NewSession(context.Background())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "employees" ("name") VALUES (?1)`).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`INSERT INTO "managers" ("employee_id", "level") VALUES (?1, ?2)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Insert(&Manager{Employee: Employee{Name: "Ann"}, Level: 3}, false))
	assert.Equal(t, []logger.Command{
		{Dialect: "sqlite", Kind: "INSERT", Entity: "Employee", InTransaction: true},
		{Dialect: "sqlite", Kind: "INSERT", Entity: "Manager", InTransaction: true},
		{Dialect: "sqlite"},
	}, rec.commands)
	assert.NoError(t, mock.ExpectationsWereMet())
}
