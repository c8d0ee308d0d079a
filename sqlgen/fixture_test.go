package sqlgen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

type Customer struct {
	Id    int64
	Name  string
	Email *string
}

type Order struct {
	Id        int64
	Number    string
	CreatedOn time.Time
	Customer  *Customer
	LineItems []*LineItem
	Tags      []*Tag
}

type LineItem struct {
	Id       string
	Quantity int
	Order    *Order
}

type Tag struct {
	Id    int64
	Label string
}

type OrderTag struct {
	Order *Order
	Tag   *Tag
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

type Shipment struct {
	Id      int64
	OrderId int64
	Order   *Order
}

func salesModel(t *testing.T) *mapping.Model {
	t.Helper()
	m := mapping.NewModel(mapping.ProjectSettings{Namespace: "Sales"})
	ns := mapping.NamingStrategy{}

	builders := []*mapping.EntityBuilder{
		mapping.NewEntityBuilder("Customer", ns).Namespace("Sales").
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Name", "string").
			Property("Email", "string", mapping.Nullable()),
		mapping.NewEntityBuilder("Order", ns).Namespace("Sales").
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Number", "string").
			Property("CreatedOn", "time.Time", mapping.IgnoreOnUpdate()).
			ManyToOne("Customer", "Customer").
			OneToMany("LineItems", "LineItem", "order_id", "Order").
			ManyToMany("Tags", "Tag", "order_tags", "order_id", "tag_id"),
		mapping.NewEntityBuilder("LineItem", ns).Namespace("Sales").
			Key("Id", "string", mapping.Generator("guid")).
			Property("Quantity", "int").
			ManyToOne("Order", "Order"),
		mapping.NewEntityBuilder("Tag", ns).Namespace("Sales").
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Label", "string"),
		mapping.NewEntityBuilder("OrderTag", ns).Namespace("Sales").Table("order_tags").LinkTable().
			KeyReference("Order", "Order").
			KeyReference("Tag", "Tag"),
		mapping.NewEntityBuilder("Employee", ns).Namespace("HR").
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Name", "string"),
		mapping.NewEntityBuilder("Manager", ns).Namespace("HR").Extends("HR.Employee").
			Key("Id", "int64", mapping.Column("employee_id")).
			Property("Level", "int"),
		mapping.NewEntityBuilder("Invoice", ns).Namespace("Billing").
			Key("Id", "int64", mapping.Generator("sequence")).
			Property("Amount", "float64"),
		mapping.NewEntityBuilder("Shipment", ns).Namespace("Sales").
			Key("Id", "int64").
			Property("OrderId", "int64", mapping.Column("order_id")).
			ManyToOne("Order", "Order"),
	}
	for _, b := range builders {
		_, err := b.BuildInto(m)
		require.NoError(t, err)
	}
	require.NoError(t, m.Validate())
	return m
}

func entity(t *testing.T, m *mapping.Model, name string) *mapping.Entity {
	t.Helper()
	e, ok := m.GetEntity(name)
	require.True(t, ok, name)
	return e
}

func resolve(t *testing.T, op *sqlgen.SqlOperation, name string) interface{} {
	t.Helper()
	p, ok := op.Param(name)
	require.True(t, ok, "parameter %s of %s", name, op.SQL)
	v, err := p.Resolve()
	require.NoError(t, err)
	return v
}
