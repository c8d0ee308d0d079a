package mapping_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malweka/GoliathData-sub001/mapping"
)

func TestMergeMetadataExactBeatsWildcard(t *testing.T) {
	m := salesModel(t)
	applied := m.MergeMetadata(map[string][]mapping.MetadataAttribute{
		"*.Name":        {{Name: "display", Value: "wildcard"}},
		"Customer.Name": {{Name: "display", Value: "exact"}},
	})

	customer, _ := m.GetEntity("Customer")
	name, _ := customer.GetProperty("Name")
	assert.Equal(t, "exact", name.MetaData["display"])

	employee, _ := m.GetEntity("Employee")
	name, _ = employee.GetProperty("Name")
	assert.Equal(t, "wildcard", name.MetaData["display"])
	assert.Equal(t, 2, applied)
}

func TestMergeMetadataNeverOverwrites(t *testing.T) {
	m := salesModel(t)
	order, _ := m.GetEntity("Sales.Order")
	created, _ := order.GetProperty("CreatedOn")
	created.MetaData = map[string]string{"format": "document"}

	m.MergeMetadata(map[string][]mapping.MetadataAttribute{
		"Sales.Order.CreatedOn": {{Name: "format", Value: "exact"}},
		"*.CreatedOn":           {{Name: "format", Value: "wildcard"}, {Name: "readonly", Value: "true"}},
	})
	assert.Equal(t, "document", created.MetaData["format"])
	assert.Equal(t, "true", created.MetaData["readonly"])

	m.MergeMetadata(map[string][]mapping.MetadataAttribute{
		"*.CreatedOn": {{Name: "readonly", Value: "false"}},
	})
	assert.Equal(t, "true", created.MetaData["readonly"])
}

func TestMergeMetadataActivation(t *testing.T) {
	m := salesModel(t)
	m.MergeMetadata(map[string][]mapping.MetadataAttribute{
		"Order": {
			{Name: "audited", Value: "yes"},
			{Name: "cached", Value: "yes", Activation: "true"},
			{Name: "archived", Value: "yes", Activation: "false"},
			{Name: "exported", Value: "yes", Activation: "sometimes"},
		},
		"Invoice.Total": {{Name: "ignored", Value: "x"}},
	})

	order, _ := m.GetEntity("Order")
	assert.Equal(t, map[string]string{"audited": "yes", "cached": "yes"}, order.MetaData)
}

func TestLoadMetadata(t *testing.T) {
	doc := `
"*.Email":
  - name: format
    value: email
Customer:
  - name: table_comment
    value: people who buy
    activation: "1"
`
	entries, err := mapping.LoadMetadata(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	m := salesModel(t)
	assert.Equal(t, 2, m.MergeMetadata(entries))
	customer, _ := m.GetEntity("Customer")
	assert.Equal(t, "people who buy", customer.MetaData["table_comment"])
}
