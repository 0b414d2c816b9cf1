package planner

// SelectRequiredJoins computes the minimal, correctly ordered set of
// joins a query needs, per spec.md §4.6:
//
//  1. Start from requiredAliases (every alias a selected dimension,
//     measure, filter, or order term touches).
//  2. A join is prunable iff it is not required, its JoinType is Left,
//     and its join keys exactly cover the joined table's primary key —
//     dropping such a join cannot change row count or add NULLs to any
//     kept column.
//  3. Expand the required set transitively along ToAlias back
//     references, and unconditionally keep every non-prunable join
//     (inner joins, or one with unproven cardinality, can change row
//     count even when nothing selects from it), so every ancestor a
//     kept join depends on is also kept.
//  4. Emit the kept joins in topological order — base alias implicitly
//     first, then every join after the join it chains from.
func SelectRequiredJoins(flow *SemanticFlow, requiredAliases map[string]bool, aliasToTable map[string]*SemanticTable) ([]*FlowJoin, error) {
	baseAlias := flow.BaseTable.Alias

	needed := map[string]bool{}
	var stack []string
	for alias := range requiredAliases {
		if alias != baseAlias {
			stack = append(stack, alias)
		}
	}
	for _, join := range flow.Joins {
		if join.Alias != baseAlias && !safeToPrune(join, aliasToTable) {
			stack = append(stack, join.Alias)
		}
	}

	for len(stack) > 0 {
		alias := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if needed[alias] {
			continue
		}
		needed[alias] = true
		join, ok := flow.Joins[alias]
		if !ok {
			return nil, newErr(UnknownJoinAlias, "missing join definition for alias %q", alias).withFlow(flow.Name)
		}
		if join.ToAlias != baseAlias {
			stack = append(stack, join.ToAlias)
		}
	}

	var ordered []*FlowJoin
	visited := map[string]bool{}
	for _, alias := range flow.JoinOrder {
		if !needed[alias] {
			continue
		}
		join := flow.Joins[alias]
		if err := visitJoin(join.Alias, baseAlias, flow.Joins, visited, &ordered); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// safeToPrune reports whether dropping join cannot change the query's
// result: it must be a Left join whose right-hand join keys exactly
// cover the joined table's primary key, per spec.md §4.6.
func safeToPrune(join *FlowJoin, aliasToTable map[string]*SemanticTable) bool {
	if join.JoinType != JoinLeft {
		return false
	}
	table, ok := aliasToTable[join.Alias]
	if !ok {
		return false
	}
	if len(table.PrimaryKey) == 0 {
		return false
	}
	rightKeys := columnSet(joinKeyColumns(join.JoinKeys, false))
	return setEquals(rightKeys, columnSet(table.PrimaryKey))
}

// visitJoin emits join's ToAlias chain before join itself (parent
// first), guaranteeing each join's FROM-side alias is already in scope
// by the time the renderer reaches its ON clause.
func visitJoin(alias, baseAlias string, joins map[string]*FlowJoin, visited map[string]bool, ordered *[]*FlowJoin) error {
	if visited[alias] {
		return nil
	}
	join, ok := joins[alias]
	if !ok {
		return newErr(UnknownJoinAlias, "missing join definition for alias %q", alias)
	}
	if join.ToAlias != baseAlias {
		if err := visitJoin(join.ToAlias, baseAlias, joins, visited, ordered); err != nil {
			return err
		}
	}
	visited[alias] = true
	*ordered = append(*ordered, join)
	return nil
}
