package planner

import "fmt"

// SanitizedAlias turns a qualified public field name (alias.field) into
// the SQL-legal column alias the renderer emits, per spec.md §4.9. The
// caller (C10/renderer orchestration, outside this package) restores the
// dotted form when mapping result columns back to public field names.
func SanitizedAlias(alias, name string) string {
	return alias + "__" + name
}

// BuildPlan assembles qc into a renderable SelectQuery, choosing the
// Flat or MultiGrain shape per mg (spec.md §4.7). The target dialect's
// SupportsFilteredAggregates does not affect the plan: the SqlExpr tree
// always uses SqlFilteredAggregate, and the dialect-aware renderer
// decides whether to emit FILTER (WHERE ...) or desugar to CASE WHEN.
func BuildPlan(qc *QueryComponents, mg MultiGrainAnalysis, flow *SemanticFlow) (*SelectQuery, error) {
	if mg.NeedsMultiGrain {
		return buildMultiGrainPlan(qc, flow)
	}
	return buildFlatPlan(qc, flow)
}

// buildFlatPlan builds a single SelectQuery with direct joins and a
// GROUP BY over the selected dimensions, per spec.md §4.7's "Flat plan".
func buildFlatPlan(qc *QueryComponents, flow *SemanticFlow) (*SelectQuery, error) {
	baseTable := qc.AliasToTable[qc.BaseAlias]
	q := &SelectQuery{
		From: TableRef{Table: baseTable.Table, Alias: qc.BaseAlias},
	}

	requiredJoins, err := SelectRequiredJoins(flow, qc.RequiredAliases, qc.AliasToTable)
	if err != nil {
		return nil, err
	}
	for _, fj := range requiredJoins {
		table := qc.AliasToTable[fj.Alias]
		q.Joins = append(q.Joins, Join{
			Type: fj.JoinType,
			Ref:  TableRef{Table: table.Table, Alias: fj.Alias},
			On:   joinOnExpr(fj),
		})
	}

	for _, d := range qc.Dimensions {
		q.Select = append(q.Select, SelectItem{Expr: d.Expr, Alias: SanitizedAlias(d.Alias, d.Dim.Name)})
		q.GroupBy = append(q.GroupBy, d.Expr)
	}

	measureSQL, err := buildMeasureSelects(qc)
	if err != nil {
		return nil, err
	}
	q.Select = append(q.Select, measureSQL...)

	if len(qc.Measures) == 0 {
		q.GroupBy = nil
	}

	for _, f := range qc.Filters {
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

// joinOnExpr renders a FlowJoin's equality predicates as a single
// (possibly AND-chained) SqlExpr, qualifying the left side by the join's
// ToAlias and the right side by its own Alias.
func joinOnExpr(fj *FlowJoin) SqlExpr {
	var expr SqlExpr
	for _, k := range fj.JoinKeys {
		eq := SqlBinary{
			Op:    OpEq,
			Left:  SqlColumn{Alias: fj.ToAlias, Name: k.Left},
			Right: SqlColumn{Alias: fj.Alias, Name: k.Right},
		}
		if expr == nil {
			expr = eq
		} else {
			expr = SqlBinary{Op: OpAnd, Left: expr, Right: eq}
		}
	}
	return expr
}

// renderFilterExpr renders a resolved filter as a binary/IN/LIKE SqlExpr
// over its already-qualified field expression, grounded on
// query_builder/filters.rs's render_filter_expr.
func renderFilterExpr(fieldExpr SqlExpr, f Filter) SqlExpr {
	switch f.Op {
	case FilterIn, FilterNotIn:
		var values []SqlExpr
		if list, ok := f.Value.([]Value); ok {
			for _, v := range list {
				values = append(values, SqlLiteral{Value: v})
			}
		} else if list, ok := f.Value.([]any); ok {
			for _, v := range list {
				values = append(values, SqlLiteral{Value: v})
			}
		} else {
			values = append(values, SqlLiteral{Value: f.Value})
		}
		return SqlIn{Expr: fieldExpr, Values: values, Negated: f.Op == FilterNotIn}
	case FilterLike, FilterILike:
		return SqlLike{Expr: fieldExpr, Pattern: SqlLiteral{Value: f.Value}, CaseInsensitive: f.Op == FilterILike}
	default:
		return SqlBinary{Op: filterOpToBinaryOp(f.Op), Left: fieldExpr, Right: SqlLiteral{Value: f.Value}}
	}
}

func filterOpToBinaryOp(op FilterOp) BinaryOp {
	switch op {
	case FilterEq:
		return OpEq
	case FilterNeq:
		return OpNeq
	case FilterGt:
		return OpGt
	case FilterGte:
		return OpGte
	case FilterLt:
		return OpLt
	case FilterLte:
		return OpLte
	default:
		return OpEq
	}
}

// buildMeasureSelects renders every requested (not dependency-only)
// measure to a SelectItem, resolving derived measures' post-expressions
// against their base-measure siblings on the same alias.
func buildMeasureSelects(qc *QueryComponents) ([]SelectItem, error) {
	baseByKey := map[string]SqlExpr{}
	for _, m := range qc.Measures {
		if m.Measure.IsBase() {
			baseByKey[m.Alias+"."+m.Measure.Name] = measureBaseExpr(m)
		}
	}

	var items []SelectItem
	for _, m := range qc.Measures {
		if !m.Requested {
			continue
		}
		sql, err := measureSelectExpr(m, qc, baseByKey)
		if err != nil {
			return nil, err
		}
		items = append(items, SelectItem{Expr: sql, Alias: SanitizedAlias(m.Alias, m.Measure.Name)})
	}
	return items, nil
}

// measureBaseExpr renders a base measure's aggregate (with its optional
// request-independent filter) over its own alias.
func measureBaseExpr(m ResolvedMeasure) SqlExpr {
	inner := exprToSql(m.Measure.Expr, m.Alias)
	if m.Measure.Filter != nil {
		return SqlFilteredAggregate{Agg: m.Measure.Agg, Expr: inner, Filter: exprToSql(m.Measure.Filter, m.Alias)}
	}
	return SqlAggregate{Agg: m.Measure.Agg, Expr: inner}
}

// measureSelectExpr renders m for the flat-plan SELECT list: a base
// measure aggregates directly; a derived measure resolves its
// PostExpr's MeasureRefs against baseByKey; a formula measure parses
// its formula and resolves the same way.
func measureSelectExpr(m ResolvedMeasure, qc *QueryComponents, baseByKey map[string]SqlExpr) (SqlExpr, error) {
	resolveRef := func(name string) (SqlExpr, error) {
		if sql, ok := baseByKey[m.Alias+"."+name]; ok {
			return sql, nil
		}
		return nil, newErr(UnknownField, "post_expr/formula dependency %q not found on alias %q", name, m.Alias).withFlow(qc.Flow.Name)
	}

	switch {
	case m.Measure.IsBase():
		return measureBaseExpr(m), nil
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
		return nil, fmt.Errorf("planner: measure %q is neither base, derived, nor formula", m.Name)
	}
}
