package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malweka/GoliathData-sub001/mapping"
)

func salesModel(t *testing.T) *mapping.Model {
	t.Helper()
	m := mapping.NewModel(mapping.ProjectSettings{Version: "1.0", Platform: "Postgres", Namespace: "Sales"})
	ns := mapping.NamingStrategy{}

	builders := []*mapping.EntityBuilder{
		mapping.NewEntityBuilder("Customer", ns).Namespace("Sales").
			Key("Id", "int64", mapping.Generator("identity"), mapping.Unsaved("0")).
			Property("Name", "string", mapping.Length(100)).
			Property("Email", "string", mapping.Nullable(), mapping.Unique()),
		mapping.NewEntityBuilder("Order", ns).Namespace("Sales").
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Number", "string").
			Property("CreatedOn", "time.Time", mapping.IgnoreOnUpdate()).
			Property("Status", "Sales.OrderStatus").
			ManyToOne("Customer", "Customer").
			OneToMany("LineItems", "LineItem", "order_id", "Order", mapping.Lazy()).
			ManyToMany("Tags", "Tag", "order_tags", "order_id", "tag_id", mapping.Collection(mapping.CollectionSet)),
		mapping.NewEntityBuilder("LineItem", ns).Namespace("Sales").
			Key("Id", "string", mapping.Generator("guid")).
			Property("Quantity", "int").
			ManyToOne("Order", "Order"),
		mapping.NewEntityBuilder("Tag", ns).Namespace("Sales").
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Label", "string").
			ManyToMany("Orders", "Order", "order_tags", "tag_id", "order_id", mapping.Inverse()),
		mapping.NewEntityBuilder("OrderTag", ns).Namespace("Sales").Table("order_tags").LinkTable().
			KeyReference("Order", "Order").
			KeyReference("Tag", "Tag"),
		mapping.NewEntityBuilder("Employee", ns).Namespace("HR").
			Key("Id", "int64", mapping.Generator("identity")).
			Property("Name", "string"),
		mapping.NewEntityBuilder("Manager", ns).Namespace("HR").Extends("HR.Employee").
			Key("Id", "int64", mapping.Column("employee_id")).
			Property("Level", "int"),
	}
	for _, b := range builders {
		_, err := b.BuildInto(m)
		require.NoError(t, err)
	}

	m.AddComplexType(&mapping.ComplexType{
		Name: "OrderStatus", Namespace: "Sales", IsEnum: true, BaseType: "int",
		Properties: []*mapping.Property{
			{PropertyName: "Open", DefaultValue: "0"},
			{PropertyName: "Shipped", DefaultValue: "1"},
		},
	})
	m.AddStatement(&mapping.Statement{
		Name:      "OrdersByCustomer",
		Operation: mapping.StatementQuery,
		ResultMap: "Order",
		Body:      "SELECT * FROM orders o WHERE o.customer_id = @customer",
	})
	m.Settings.Properties = []mapping.ProjectSetting{{Name: "generator", Value: "goliath"}}
	require.NoError(t, m.Validate())
	return m
}
