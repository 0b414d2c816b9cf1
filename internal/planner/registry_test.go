package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_TableAndFlowLookup(t *testing.T) {
	reg := newFixtureRegistry()

	orders, ok := reg.Table("orders")
	require.True(t, ok)
	assert.Equal(t, "orders", orders.Name)

	_, ok = reg.Table("missing")
	assert.False(t, ok)

	flow, ok := reg.Flow("order_analysis")
	require.True(t, ok)
	assert.Equal(t, "o", flow.BaseTable.Alias)

	_, ok = reg.Flow("missing")
	assert.False(t, ok)
}

func TestRegistry_TablesAndFlows(t *testing.T) {
	reg := newFixtureRegistry()
	assert.Len(t, reg.Tables(), 3)
	assert.Len(t, reg.Flows(), 1)
}

func TestRegistry_AliasTable(t *testing.T) {
	reg := newFixtureRegistry()
	flow, _ := reg.Flow("order_analysis")

	aliasTable, err := reg.AliasTable(flow)
	require.NoError(t, err)
	assert.Len(t, aliasTable, 3)
	assert.Equal(t, "orders", aliasTable["o"].Name)
	assert.Equal(t, "customers", aliasTable["c"].Name)
	assert.Equal(t, "line_items", aliasTable["li"].Name)
}

func TestRegistry_AliasTable_UnknownBaseTable(t *testing.T) {
	reg := newFixtureRegistry()
	flow, _ := reg.Flow("order_analysis")
	flow.BaseTable.SemanticTable = "missing"

	_, err := reg.AliasTable(flow)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, UnknownFlow, perr.Kind())
}

func TestRegistry_AliasTable_UnknownJoinTable(t *testing.T) {
	reg := newFixtureRegistry()
	flow, _ := reg.Flow("order_analysis")
	flow.Joins["c"].SemanticTable = "missing"

	_, err := reg.AliasTable(flow)
	require.Error(t, err)
}

func TestRegistry_FlowSchema(t *testing.T) {
	reg := newFixtureRegistry()

	schema, err := reg.FlowSchema("order_analysis")
	require.NoError(t, err)
	assert.Equal(t, "order_analysis", schema.Flow)

	names := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = f.PublicName
	}
	assert.Contains(t, names, "o.status")
	assert.Contains(t, names, "o.revenue")
	assert.Contains(t, names, "c.name")
	assert.Contains(t, names, "c.customer_count")
	assert.Contains(t, names, "li.line_total")

	var revenueField FieldSchema
	for _, f := range schema.Fields {
		if f.PublicName == "o.revenue" {
			revenueField = f
		}
	}
	assert.True(t, revenueField.IsMeasure)
	assert.Equal(t, AggSum, revenueField.Aggregation)
}

func TestRegistry_FlowSchema_UnknownFlow(t *testing.T) {
	reg := newFixtureRegistry()
	_, err := reg.FlowSchema("missing")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, UnknownFlow, perr.Kind())
}
