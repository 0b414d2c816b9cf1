package planner

// newFixtureRegistry builds a small three-table registry shared by the
// grain/join/plan tests: orders (base) <- customers (many-to-one,
// prunable) and orders -> line_items (one-to-many, fans out).
func newFixtureRegistry() *Registry {
	customers := &SemanticTable{
		Name:           "customers",
		DataSource:     "warehouse",
		Table:          "customers",
		PrimaryKey:     []string{"id"},
		DimensionOrder: []string{"name"},
		Dimensions: map[string]*Dimension{
			"name": {Name: "name", Expr: Column{Name: "name"}, DataType: "string"},
		},
		Measures: map[string]*Measure{
			"customer_count": {Name: "customer_count", Agg: AggCountDistinct, Expr: Column{Name: "id"}, DataType: "int"},
		},
		MeasureOrder: []string{"customer_count"},
	}

	orders := &SemanticTable{
		Name:           "orders",
		DataSource:     "warehouse",
		Table:          "orders",
		PrimaryKey:     []string{"id"},
		DimensionOrder: []string{"status"},
		Dimensions: map[string]*Dimension{
			"status": {Name: "status", Expr: Column{Name: "status"}, DataType: "string"},
		},
		MeasureOrder: []string{"revenue"},
		Measures: map[string]*Measure{
			"revenue": {Name: "revenue", Agg: AggSum, Expr: Column{Name: "amount"}, DataType: "decimal"},
		},
	}

	lineItems := &SemanticTable{
		Name:           "line_items",
		DataSource:     "warehouse",
		Table:          "line_items",
		PrimaryKey:     []string{"id"},
		DimensionOrder: []string{},
		Dimensions:     map[string]*Dimension{},
		MeasureOrder:   []string{"line_total"},
		Measures: map[string]*Measure{
			"line_total": {Name: "line_total", Agg: AggSum, Expr: Column{Name: "amount"}, DataType: "decimal"},
		},
	}

	flow := &SemanticFlow{
		Name:      "order_analysis",
		BaseTable: BaseTableRef{SemanticTable: "orders", Alias: "o"},
		JoinOrder: []string{"c", "li"},
		Joins: map[string]*FlowJoin{
			"c": {
				SemanticTable: "customers",
				Alias:         "c",
				ToAlias:       "o",
				JoinType:      JoinLeft,
				JoinKeys:      []JoinKey{{Left: "customer_id", Right: "id"}},
			},
			"li": {
				SemanticTable: "line_items",
				Alias:         "li",
				ToAlias:       "o",
				JoinType:      JoinLeft,
				JoinKeys:      []JoinKey{{Left: "id", Right: "order_id"}},
			},
		},
	}

	return NewRegistry([]*SemanticTable{orders, customers, lineItems}, []*SemanticFlow{flow})
}
