package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistry_FixtureIsValid(t *testing.T) {
	reg := newFixtureRegistry()
	verrs, err := ValidateRegistry(reg, ValidationStrict)
	require.NoError(t, err)
	assert.True(t, verrs.Empty())
}

func TestValidateRegistry_MissingPrimaryKey(t *testing.T) {
	reg := newFixtureRegistry()
	orders, _ := reg.Table("orders")
	orders.PrimaryKey = nil

	verrs, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	require.Len(t, verrs.Errors, 1)
	assert.Equal(t, SchemaMismatch, verrs.Errors[0].Kind())
}

func TestValidateRegistry_PrimaryKeyColumnNotFound(t *testing.T) {
	reg := newFixtureRegistry()
	orders, _ := reg.Table("orders")
	orders.PrimaryKey = []string{"nonexistent"}

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary_key column")
}

func TestValidateRegistry_TimeDimensionNotAmongDimensions(t *testing.T) {
	reg := newFixtureRegistry()
	orders, _ := reg.Table("orders")
	orders.TimeDimension = "order_date"

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time_dimension")
}

func TestValidateRegistry_MeasureMustSetExactlyOneKind(t *testing.T) {
	reg := newFixtureRegistry()
	orders, _ := reg.Table("orders")
	orders.Measures["ambiguous"] = &Measure{Name: "ambiguous", PostExpr: MeasureRef{Name: "revenue"}, Formula: "revenue + 1"}
	orders.MeasureOrder = append(orders.MeasureOrder, "ambiguous")

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")
}

func TestValidateRegistry_DerivedMeasureReferencesUnknownMeasure(t *testing.T) {
	reg := newFixtureRegistry()
	orders, _ := reg.Table("orders")
	orders.Measures["markup"] = &Measure{Name: "markup", PostExpr: MeasureRef{Name: "does_not_exist"}}
	orders.MeasureOrder = append(orders.MeasureOrder, "markup")

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown measure")
}

func TestValidateRegistry_DerivedOfDerivedRejected(t *testing.T) {
	reg := newFixtureRegistry()
	orders, _ := reg.Table("orders")
	orders.Measures["revenue_derived"] = &Measure{Name: "revenue_derived", PostExpr: MeasureRef{Name: "revenue"}}
	orders.Measures["double_derived"] = &Measure{Name: "double_derived", PostExpr: MeasureRef{Name: "revenue_derived"}}
	orders.MeasureOrder = append(orders.MeasureOrder, "revenue_derived", "double_derived")

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derived")
}

func TestValidateRegistry_UnknownBaseTable(t *testing.T) {
	reg := newFixtureRegistry()
	flow, _ := reg.Flow("order_analysis")
	flow.BaseTable.SemanticTable = "missing_table"

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base table")
}

func TestValidateRegistry_DuplicateJoinAlias(t *testing.T) {
	reg := newFixtureRegistry()
	flow, _ := reg.Flow("order_analysis")
	flow.JoinOrder = append(flow.JoinOrder, "c") // "c" already used

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate join alias")
}

func TestValidateRegistry_JoinKeyUnknownColumn(t *testing.T) {
	reg := newFixtureRegistry()
	flow, _ := reg.Flow("order_analysis")
	flow.Joins["c"].JoinKeys = []JoinKey{{Left: "does_not_exist", Right: "id"}}

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "join key left column")
}

func TestValidateRegistry_MixedDataSourcesRejected(t *testing.T) {
	reg := newFixtureRegistry()
	customers, _ := reg.Table("customers")
	customers.DataSource = "other_warehouse"

	_, err := ValidateRegistry(reg, ValidationStrict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distinct data sources")
}

func TestValidateRegistry_WarnModeNeverReturnsError(t *testing.T) {
	reg := newFixtureRegistry()
	orders, _ := reg.Table("orders")
	orders.PrimaryKey = nil

	verrs, err := ValidateRegistry(reg, ValidationWarn)
	require.NoError(t, err)
	assert.False(t, verrs.Empty())
}
