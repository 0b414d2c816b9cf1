package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semaflow/semaflow/internal/planner"
)

// writeFile writes content to dir/name, creating dir's parent if needed.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const ordersTableYAML = `
apiVersion: semaflow/v1
kind: SemanticTable
metadata:
  name: orders
spec:
  data_source: warehouse
  table: orders
  primary_key: id
  time_dimension: order_date
  dimensions:
    order_date: order_date
    status:
      expr: status
      data_type: string
      description: order status
  measures:
    revenue:
      expr: amount
      agg: sum
      data_type: decimal
    big_order_count:
      expr: id
      agg: count_distinct
      filter: "amount > 100"
    revenue_per_order:
      formula: "safe_divide(revenue, big_order_count)"
`

const customersTableYAML = `
apiVersion: semaflow/v1
kind: SemanticTable
metadata:
  name: customers
spec:
  data_source: warehouse
  table: customers
  primary_keys: [id]
  dimensions:
    name: name
  measures:
    customer_count:
      expr: id
      agg: count_distinct
`

const orderAnalysisFlowYAML = `
apiVersion: semaflow/v1
kind: SemanticFlow
metadata:
  name: order_analysis
spec:
  base_table:
    semantic_table: orders
    alias: o
  description: orders joined to customers
  joins:
    c:
      semantic_table: customers
      alias: c
      to_table: o
      join_type: left
      join_keys:
        - left: customer_id
          right: id
      cardinality: many_to_one
`

func TestLoadDirectory_TablesAndFlow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", ordersTableYAML)
	writeFile(t, filepath.Join(dir, "tables"), "customers.yaml", customersTableYAML)
	writeFile(t, filepath.Join(dir, "flows"), "order_analysis.yaml", orderAnalysisFlowYAML)

	reg, err := LoadDirectory(dir)
	require.NoError(t, err)

	orders, ok := reg.Table("orders")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, orders.PrimaryKey)
	assert.Equal(t, "order_date", orders.TimeDimension)
	assert.Equal(t, []string{"order_date", "status"}, orders.DimensionOrder)
	assert.Equal(t, planner.Column{Name: "order_date"}, orders.Dimensions["order_date"].Expr)
	assert.Equal(t, "order status", orders.Dimensions["status"].Description)

	revenue := orders.Measures["revenue"]
	require.NotNil(t, revenue)
	assert.True(t, revenue.IsBase())
	assert.Equal(t, planner.AggSum, revenue.Agg)

	bigOrders := orders.Measures["big_order_count"]
	require.NotNil(t, bigOrders)
	assert.NotNil(t, bigOrders.Filter)

	derived := orders.Measures["revenue_per_order"]
	require.NotNil(t, derived)
	assert.True(t, derived.IsFormula())
	assert.Equal(t, "safe_divide(revenue, big_order_count)", derived.Formula)

	customers, ok := reg.Table("customers")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, customers.PrimaryKey)

	flow, ok := reg.Flow("order_analysis")
	require.True(t, ok)
	assert.Equal(t, "orders", flow.BaseTable.SemanticTable)
	assert.Equal(t, "o", flow.BaseTable.Alias)
	assert.Equal(t, []string{"c"}, flow.JoinOrder)
	join := flow.Joins["c"]
	require.NotNil(t, join)
	assert.Equal(t, planner.JoinLeft, join.JoinType)
	assert.Equal(t, planner.CardinalityManyToOne, join.Cardinality)
	assert.Equal(t, []planner.JoinKey{{Left: "customer_id", Right: "id"}}, join.JoinKeys)
}

func TestLoadDirectory_MissingDirsProduceEmptyRegistry(t *testing.T) {
	dir := t.TempDir()
	reg, err := LoadDirectory(dir)
	require.NoError(t, err)
	assert.Empty(t, reg.Tables())
	assert.Empty(t, reg.Flows())
}

func TestLoadTableFile_MetadataNameMustMatchFileStem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", customersTableYAML) // metadata.name is "customers"

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match file name")
}

func TestLoadTableFile_WrongKindRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", `
apiVersion: semaflow/v1
kind: SemanticFlow
metadata:
  name: orders
spec:
  data_source: warehouse
  table: orders
  primary_key: id
`)

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected kind")
}

func TestLoadTableFile_WrongAPIVersionRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", `
apiVersion: semaflow/v2
kind: SemanticTable
metadata:
  name: orders
spec:
  data_source: warehouse
  table: orders
  primary_key: id
`)

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported apiVersion")
}

func TestLoadTableFile_MissingPrimaryKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", `
apiVersion: semaflow/v1
kind: SemanticTable
metadata:
  name: orders
spec:
  data_source: warehouse
  table: orders
`)

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either primary_key or primary_keys must be specified")
}

func TestLoadTableFile_MeasureMutualExclusivity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", `
apiVersion: semaflow/v1
kind: SemanticTable
metadata:
  name: orders
spec:
  data_source: warehouse
  table: orders
  primary_key: id
  measures:
    bad:
      expr: amount
      agg: sum
      formula: "amount * 2"
`)

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot specify both expr/agg and formula")
}

func TestLoadTableFile_MeasureNeitherSimpleNorFormula(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", `
apiVersion: semaflow/v1
kind: SemanticTable
metadata:
  name: orders
spec:
  data_source: warehouse
  table: orders
  primary_key: id
  measures:
    bad:
      data_type: decimal
`)

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must specify either expr+agg or formula")
}

func TestLoadTableFile_FormulaMeasureCannotHaveFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", `
apiVersion: semaflow/v1
kind: SemanticTable
metadata:
  name: orders
spec:
  data_source: warehouse
  table: orders
  primary_key: id
  measures:
    bad:
      formula: "amount * 2"
      filter: "amount > 0"
`)

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formula measures cannot have a separate filter")
}

func TestLoadFlowFile_LegacyBareDocumentFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables"), "orders.yaml", ordersTableYAML)
	writeFile(t, filepath.Join(dir, "tables"), "customers.yaml", customersTableYAML)
	writeFile(t, filepath.Join(dir, "flows"), "order_analysis.yaml", `
name: order_analysis
base_table:
  semantic_table: orders
  alias: o
joins:
  c:
    semantic_table: customers
    alias: c
    to_table: o
    join_type: inner
    join_keys:
      - left: customer_id
        right: id
`)

	reg, err := LoadDirectory(dir)
	require.NoError(t, err)

	flow, ok := reg.Flow("order_analysis")
	require.True(t, ok)
	assert.Equal(t, "orders", flow.BaseTable.SemanticTable)
	join := flow.Joins["c"]
	require.NotNil(t, join)
	assert.Equal(t, planner.JoinInner, join.JoinType)
	assert.Equal(t, []planner.JoinKey{{Left: "customer_id", Right: "id"}}, join.JoinKeys)
}

func TestLoadFlowFile_LegacyNameMustMatchFileStem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "flows"), "order_analysis.yaml", `
name: something_else
base_table:
  semantic_table: orders
  alias: o
`)

	_, err := LoadDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match file name")
}
