package goliath_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goliath "github.com/malweka/GoliathData-sub001"
	"github.com/malweka/GoliathData-sub001/dialect"
	"github.com/malweka/GoliathData-sub001/hydrate"
	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

var orderColumns = []string{"order_id", "order_number", "order_customer_id", "customer_id", "customer_name"}

func TestGetByKeyHydratesGraph(t *testing.T) {
	db, mock := newMockDB(t, &dialect.SQLite{}, nil, sqlmock.QueryMatcherRegexp)
	s := newSession(t, db)

	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN "customers" "customer"`) + ".*" + regexp.QuoteMeta(`WHERE "order"."id" = ?1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(int64(42), "A-1", int64(7), int64(7), "Ada"))

	var order Order
	require.NoError(t, s.GetByKey(&order, int64(42)))
	assert.Equal(t, "A-1", order.Number)
	require.NotNil(t, order.Customer)
	assert.Equal(t, Customer{Id: 7, Name: "Ada"}, *order.Customer)
	assert.False(t, order.LineItems.IsLoaded())

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "line_items" "line_item" WHERE "line_item"."order_id" = ?1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"line_item_id", "line_item_quantity", "line_item_order_id"}).
			AddRow("a", int64(1), int64(42)).
			AddRow("b", int64(2), int64(42)))

	ctx := context.Background()
	items, err := order.LineItems.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, int64(42), items[0].Order.Key())

	again, err := order.LineItems.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByKeyNotFound(t *testing.T) {
	db, mock := newMockDB(t, &dialect.SQLite{}, nil, sqlmock.QueryMatcherRegexp)
	s := newSession(t, db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE "customer"."id" = ?1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "customer_name"}))

	var c Customer
	assert.ErrorIs(t, s.GetByKey(&c, int64(1)), goliath.ErrRecordNotFound)

	assert.ErrorIs(t, s.GetByKey(&c, int64(1), int64(2)), sqlgen.ErrInvalidValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectAndCount(t *testing.T) {
	db, mock := newMockDB(t, &dialect.Postgres{}, nil, sqlmock.QueryMatcherRegexp)
	s := newSession(t, db)

	name, err := db.Builder().Select(mustEntity(t, db, "Customer")).PropertyRef("Name")
	require.NoError(t, err)
	body := goliath.QueryBody{
		Where:   name + " LIKE @pattern",
		Params:  []sqlgen.Param{{Name: "pattern", Value: "A%"}},
		OrderBy: []string{name},
		Limit:   10,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE "customer"."name" LIKE $1 ORDER BY "customer"."name" LIMIT 10`)).
		WithArgs("A%").
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "customer_name"}).
			AddRow(int64(1), "Ada").
			AddRow(int64(2), "Alan"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM (SELECT `)).
		WithArgs("A%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	var customers []Customer
	require.NoError(t, s.Select(&customers, body))
	assert.Equal(t, []Customer{{Id: 1, Name: "Ada"}, {Id: 2, Name: "Alan"}}, customers)

	n, err := s.Count(Customer{}, body)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappedStatements(t *testing.T) {
	db, mock := newMockDB(t, &dialect.SQLite{}, nil, sqlmock.QueryMatcherEqual)

	require.NoError(t, db.RegisterStatement(&mapping.Statement{
		Name:      "RenameCustomer",
		Operation: mapping.StatementNonQuery,
		Body:      `UPDATE customers SET name = @name WHERE id = @id`,
	}))
	require.NoError(t, db.RegisterStatement(&mapping.Statement{
		Name:      "CustomersByName",
		Operation: mapping.StatementQuery,
		ResultMap: "Customer",
		Body:      `SELECT id AS customer_id, name AS customer_name FROM customers WHERE name LIKE :pattern`,
	}))
	var mappingErr *mapping.MappingError
	assert.ErrorAs(t, db.RegisterStatement(&mapping.Statement{Name: "Bad", ResultMap: "Nope"}), &mappingErr)

	s := newSession(t, db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE customers SET name = ?1 WHERE id = ?2`).
		WithArgs("Bob", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT id AS customer_id, name AS customer_name FROM customers WHERE name LIKE ?1`).
		WithArgs("B%").
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "customer_name"}).AddRow(int64(1), "Bob"))

	n, err := s.ExecuteStatement("RenameCustomer", sql.Named("name", "Bob"), sql.Named("id", int64(1)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var found []*Customer
	require.NoError(t, s.QueryStatement(&found, "CustomersByName", sql.Named("pattern", "B%")))
	require.Len(t, found, 1)
	assert.Equal(t, "Bob", found[0].Name)

	_, err = s.ExecuteStatement("Missing")
	assert.ErrorIs(t, err, goliath.ErrUnknownStatement)
	_, err = s.ExecuteStatement("RenameCustomer", "Bob", 1)
	assert.ErrorIs(t, err, goliath.ErrInvalidData)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryConversionError(t *testing.T) {
	db, mock := newMockDB(t, &dialect.SQLite{}, nil, sqlmock.QueryMatcherEqual)
	s := newSession(t, db)

	mock.ExpectQuery(`SELECT * FROM line_items`).
		WillReturnRows(sqlmock.NewRows([]string{"line_item_id", "line_item_quantity"}).AddRow("a", "many"))

	var items []*LineItem
	err := s.Query(&items, `SELECT * FROM line_items`)
	var convErr *hydrate.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "line_item_quantity", convErr.Column)
	assert.Empty(t, items)
}

func mustEntity(t *testing.T, db *goliath.DB, name string) *mapping.Entity {
	t.Helper()
	e, err := db.Model.ResolveEntity(name)
	require.NoError(t, err)
	return e
}
