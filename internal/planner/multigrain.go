package planner

// buildMultiGrainPlan builds a query that pre-aggregates each measure-bearing
// alias to its own grain before joining, per spec.md §4.7's MultiGrain
// shape and §12.5's MeasureStrategy re-aggregation rules, grounded on the
// pre-distillation implementation's build_multi_grain_plan.
//
// Every alias whose requested measures include at least one
// PreAggregatable, Associative, or WeightedAverage measure gets its own
// grain CTE ("<alias>_agg"): grouped by its TableGrain columns (and any
// dimensions selected from it), with WeightedAverage measures split into
// sum/count companion columns. The final query re-aggregates each CTE's
// already-aggregated column (SUM of SUMs or of COUNTs, MAX of MAXes,
// SUM/SUM for the weighted average's ratio) rather than
// selecting the CTE's columns directly — joining several CTEs or a
// CTE with a fanned-out dimension-only alias can still produce more than
// one row per final output group.
//
// DistinctSafe measures never go in a CTE — duplicate rows from a join
// fanout don't change a DISTINCT count, so they're computed directly
// against the live joined rows in the final query. NonDecomposable
// measures (formula measures included) cannot be evaluated correctly
// once a query needs MultiGrain at all, and fail with CardinalityRequired.
//
// Dimension-only aliases (no requested measures) are joined directly
// into the final query rather than routed through a CTE — spec.md §4.7's
// algorithm, not its §8 worked example's c_agg treatment, governs here:
// their filters apply in the final query's WHERE.
func buildMultiGrainPlan(qc *QueryComponents, flow *SemanticFlow) (*SelectQuery, error) {
	allMeasuresByAlias := map[string][]ResolvedMeasure{}
	measuresByAlias := map[string][]ResolvedMeasure{}
	for _, m := range qc.Measures {
		allMeasuresByAlias[m.Alias] = append(allMeasuresByAlias[m.Alias], m)
		if m.Measure.IsBase() {
			measuresByAlias[m.Alias] = append(measuresByAlias[m.Alias], m)
		}
	}

	dimsByAlias := map[string][]ResolvedDimension{}
	for _, d := range qc.Dimensions {
		dimsByAlias[d.Alias] = append(dimsByAlias[d.Alias], d)
	}

	cteByAlias := map[string]string{}
	var ctes []NamedQuery
	baseExprByKey := map[string]SqlExpr{}

	aliasesInOrder := append([]string{qc.BaseAlias}, flow.JoinOrder...)
	for _, alias := range aliasesInOrder {
		// Checked against every measure requested on this alias, not just
		// the base ones that feed the grain CTE below: a derived or formula
		// measure is always NonDecomposable (strategy.go's ClassifyMeasure)
		// and must fail here rather than reach multiGrainMeasureExpr, which
		// has no re-aggregation path for it.
		for _, m := range allMeasuresByAlias[alias] {
			if m.Strategy == NonDecomposable {
				return nil, newErr(CardinalityRequired, "measure %q on alias %q cannot be re-aggregated across a multi-grain join", m.Name, alias).withFlow(qc.Flow.Name)
			}
		}

		measures := measuresByAlias[alias]
		if len(measures) == 0 {
			continue
		}

		needsCTE := false
		for _, m := range measures {
			if m.Strategy != DistinctSafe {
				needsCTE = true
				break
			}
		}
		if !needsCTE {
			continue
		}

		table := qc.AliasToTable[alias]
		grainCols := grainColumnsForAlias(flow, alias, table)

		cte := &SelectQuery{From: TableRef{Table: table.Table, Alias: alias}}
		for _, col := range grainCols {
			colExpr := SqlColumn{Alias: alias, Name: col}
			cte.Select = append(cte.Select, SelectItem{Expr: colExpr, Alias: col})
			cte.GroupBy = append(cte.GroupBy, colExpr)
		}
		for _, d := range dimsByAlias[alias] {
			cte.Select = append(cte.Select, SelectItem{Expr: d.Expr, Alias: d.Dim.Name})
			cte.GroupBy = append(cte.GroupBy, d.Expr)
		}
		for _, f := range qc.Filters {
			if f.Alias == alias {
				cte.Where = append(cte.Where, renderFilterExpr(f.Expr, f.Filter))
			}
		}

		for _, m := range measures {
			if m.Strategy == DistinctSafe {
				continue
			}
			if m.Strategy == WeightedAverage {
				sumCol := SanitizedAlias(alias, m.Measure.Name) + "__sum"
				countCol := SanitizedAlias(alias, m.Measure.Name) + "__count"
				inner := exprToSql(m.Measure.Expr, alias)
				sumExpr := SqlExpr(SqlAggregate{Agg: AggSum, Expr: inner})
				countExpr := SqlExpr(SqlAggregate{Agg: AggCount, Expr: inner})
				if m.Measure.Filter != nil {
					filterExpr := exprToSql(m.Measure.Filter, alias)
					sumExpr = SqlFilteredAggregate{Agg: AggSum, Expr: inner, Filter: filterExpr}
					countExpr = SqlFilteredAggregate{Agg: AggCount, Expr: inner, Filter: filterExpr}
				}
				cte.Select = append(cte.Select,
					SelectItem{Expr: sumExpr, Alias: sumCol},
					SelectItem{Expr: countExpr, Alias: countCol},
				)
				baseExprByKey[alias+"."+m.Measure.Name] = SqlCall{
					Func: FnSafeDivide,
					Args: []SqlExpr{
						SqlAggregate{Agg: AggSum, Expr: SqlColumn{Alias: alias, Name: sumCol}},
						SqlAggregate{Agg: AggSum, Expr: SqlColumn{Alias: alias, Name: countCol}},
					},
				}
				continue
			}

			col := SanitizedAlias(alias, m.Measure.Name)
			cte.Select = append(cte.Select, SelectItem{Expr: measureBaseExpr(m), Alias: col})
			outerAgg := m.Measure.Agg
			if outerAgg == AggCount {
				outerAgg = AggSum // partial counts are summed, not counted
			}
			baseExprByKey[alias+"."+m.Measure.Name] = SqlAggregate{Agg: outerAgg, Expr: SqlColumn{Alias: alias, Name: col}}
		}

		cteName := alias + "_agg"
		cteByAlias[alias] = cteName
		ctes = append(ctes, NamedQuery{Name: cteName, Query: cte})
	}

	tableRefFor := func(alias string) TableRef {
		table := qc.AliasToTable[alias]
		if cteName, ok := cteByAlias[alias]; ok {
			return TableRef{Table: cteName, Alias: alias}
		}
		return TableRef{Table: table.Table, Alias: alias}
	}

	q := &SelectQuery{CTEs: ctes, From: tableRefFor(qc.BaseAlias)}

	requiredJoins, err := SelectRequiredJoins(flow, qc.RequiredAliases, qc.AliasToTable)
	if err != nil {
		return nil, err
	}
	for _, fj := range requiredJoins {
		q.Joins = append(q.Joins, Join{
			Type: fj.JoinType,
			Ref:  tableRefFor(fj.Alias),
			On:   joinOnExpr(fj),
		})
	}

	for _, d := range qc.Dimensions {
		var outExpr SqlExpr
		if _, ok := cteByAlias[d.Alias]; ok {
			outExpr = SqlColumn{Alias: d.Alias, Name: d.Dim.Name}
		} else {
			outExpr = d.Expr
		}
		q.Select = append(q.Select, SelectItem{Expr: outExpr, Alias: SanitizedAlias(d.Alias, d.Dim.Name)})
		q.GroupBy = append(q.GroupBy, outExpr)
	}

	for _, m := range qc.Measures {
		if !m.Requested {
			continue
		}
		sql, err := multiGrainMeasureExpr(m, qc, baseExprByKey)
		if err != nil {
			return nil, err
		}
		q.Select = append(q.Select, SelectItem{Expr: sql, Alias: SanitizedAlias(m.Alias, m.Measure.Name)})
	}

	if len(qc.Measures) == 0 {
		q.GroupBy = nil
	}

	for _, f := range qc.Filters {
		if _, ok := cteByAlias[f.Alias]; ok {
			continue // already pushed into its grain CTE's WHERE above
		}
		q.Where = append(q.Where, renderFilterExpr(f.Expr, f.Filter))
	}

	for _, o := range qc.Order {
		q.OrderBy = append(q.OrderBy, OrderItem{Expr: o.Expr, Desc: o.Desc})
	}

	q.Limit = qc.Limit
	q.Offset = qc.Offset

	if len(q.Select) == 0 {
		return nil, newErr(UnknownField, "query selects no dimensions or measures").withFlow(qc.Flow.Name)
	}

	return q, nil
}

// multiGrainMeasureExpr renders m for the final query's SELECT list: a
// DistinctSafe base measure aggregates directly over the live join; any
// other base measure's already-computed re-aggregation comes from
// baseExprByKey; derived and formula measures resolve their expression
// against the same map.
func multiGrainMeasureExpr(m ResolvedMeasure, qc *QueryComponents, baseExprByKey map[string]SqlExpr) (SqlExpr, error) {
	resolveRef := func(name string) (SqlExpr, error) {
		if sql, ok := baseExprByKey[m.Alias+"."+name]; ok {
			return sql, nil
		}
		return nil, newErr(UnknownField, "post_expr/formula dependency %q not found on alias %q", name, m.Alias).withFlow(qc.Flow.Name)
	}

	switch {
	case m.Measure.IsBase():
		if m.Strategy == DistinctSafe {
			return measureBaseExpr(m), nil
		}
		return resolveRef(m.Measure.Name)
	case m.Measure.IsDerived():
		return resolvePostExpr(m.Measure.PostExpr, m.Alias, resolveRef)
	case m.Measure.IsFormula():
		table := qc.AliasToTable[m.Alias]
		measureNames := make(map[string]bool, len(table.Measures))
		for name := range table.Measures {
			measureNames[name] = true
		}
		expr, err := ParseExpr(m.Measure.Formula, measureNames)
		if err != nil {
			return nil, err
		}
		return resolvePostExpr(expr, m.Alias, resolveRef)
	default:
		return nil, newErr(UnknownField, "measure %q is neither base, derived, nor formula", m.Name).withFlow(qc.Flow.Name)
	}
}
