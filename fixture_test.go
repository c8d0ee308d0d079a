package goliath_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	goliath "github.com/malweka/GoliathData-sub001"
	"github.com/malweka/GoliathData-sub001/dialect"
	"github.com/malweka/GoliathData-sub001/lazy"
	"github.com/malweka/GoliathData-sub001/logger"
	"github.com/malweka/GoliathData-sub001/mapping"
)

type Customer struct {
	Id   int64
	Name string
}

type Order struct {
	Id        int64
	Number    string
	Customer  *Customer
	LineItems lazy.Collection[LineItem]
}

type LineItem struct {
	Id       string
	Quantity int
	Order    *lazy.Ref[Order]
}

type Employee struct {
	Id   int64
	Name string
}

type Manager struct {
	Employee
	Level int
}

type Invoice struct {
	Id     int64
	Amount float64
}

func salesModel(t *testing.T) *mapping.Model {
	t.Helper()
	m := mapping.NewModel(mapping.ProjectSettings{})
	ns := mapping.NamingStrategy{}

	builders := []*mapping.EntityBuilder{
		mapping.NewEntityBuilder("Customer", ns).
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Name", "string"),
		mapping.NewEntityBuilder("Order", ns).
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Number", "string").
			ManyToOne("Customer", "Customer").
			OneToMany("LineItems", "LineItem", "order_id", "Order", mapping.Lazy()),
		mapping.NewEntityBuilder("LineItem", ns).
			Key("Id", "string", mapping.Generator("guid")).
			Property("Quantity", "int").
			ManyToOne("Order", "Order", mapping.Lazy()),
		mapping.NewEntityBuilder("Employee", ns).
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Name", "string"),
		mapping.NewEntityBuilder("Manager", ns).Extends("Employee").
			Key("Id", "int64", mapping.Column("employee_id")).
			Property("Level", "int"),
		mapping.NewEntityBuilder("Invoice", ns).
			Key("Id", "int64", mapping.Generator("sequence")).
			Property("Amount", "float64"),
	}
	for _, b := range builders {
		_, err := b.BuildInto(m)
		require.NoError(t, err)
	}
	return m
}

// newMockSession opens a session over sqlmock matching statements exactly
func newMockSession(t *testing.T, d dialect.Dialect, config *goliath.Config) (*goliath.Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t, d, config, sqlmock.QueryMatcherEqual)
	return newSession(t, db), mock
}

func newMockDB(t *testing.T, d dialect.Dialect, config *goliath.Config, matcher sqlmock.QueryMatcher) (*goliath.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return openDB(t, d, sqlDB, config), mock
}

func openDB(t *testing.T, d dialect.Dialect, sqlDB *sql.DB, config *goliath.Config) *goliath.DB {
	t.Helper()
	if config == nil {
		config = &goliath.Config{}
	}
	if config.Model == nil {
		config.Model = salesModel(t)
	}
	config.Logger = logger.Discard

	db, err := goliath.OpenDB(d, sqlDB, config)
	require.NoError(t, err)
	return db
}

func newSession(t *testing.T, db *goliath.DB) *goliath.Session {
	t.Helper()
	s, err := db.NewSession(context.Background())
	require.NoError(t, err)
	return s
}
