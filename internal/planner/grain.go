package planner

// TableGrain describes the aggregation grain a single aliased table
// contributes to a query: its alias, and the primary-key columns the
// registry's SemanticTable declares for it.
type TableGrain struct {
	Alias      string
	PrimaryKey []string
}

// MultiGrainAnalysis is the result of deciding whether a resolved query
// can be evaluated against a single flat joined row set, or whether it
// must pre-aggregate each alias's measures to its own grain before the
// final join — the decision spec.md §4.5 keys all later planning off.
//
// This deliberately implements spec.md §4.5's literal two-rule test
// rather than the pre-distillation implementation's more elaborate
// analyze_fanout_risk (chain expansion, per-hop cardinality gates,
// join-filter compatibility checks): the stricter rule trades a few
// false positives (queries planned as MultiGrain that a more permissive
// analysis would prove safe to flatten) for an analysis that is easy to
// state, easy to verify, and never silently double-counts a measure.
type MultiGrainAnalysis struct {
	NeedsMultiGrain bool
	Reason          string
}

// AnalyzeMultiGrain decides flatness for a resolved query, per
// spec.md §4.5:
//
//  1. If the requested measures span two or more distinct aliases,
//     the query needs MultiGrain: joining two tables at different
//     grains and aggregating naively double-counts one side.
//  2. Else, if any filter targets a dimension on a non-base alias
//     reached through a join that is not proven OneToOne or
//     ManyToOne toward the base, the query needs MultiGrain: such a
//     filter can multiply base rows before aggregation (fanout).
//  3. Else the query is flat and can be planned as a single SELECT.
func AnalyzeMultiGrain(qc *QueryComponents, joins map[string]*FlowJoin, grains map[string]TableGrain) MultiGrainAnalysis {
	measureAliases := make(map[string]bool)
	for _, m := range qc.Measures {
		measureAliases[m.Alias] = true
	}
	if len(measureAliases) >= 2 {
		return MultiGrainAnalysis{
			NeedsMultiGrain: true,
			Reason:          "measures span multiple aliases",
		}
	}

	for _, f := range qc.Filters {
		if f.Alias == qc.BaseAlias {
			continue
		}
		join, ok := joins[f.Alias]
		if !ok {
			continue
		}
		baseGrain := grains[qc.BaseAlias]
		joinGrain := grains[f.Alias]
		if IsSafeManyToOne(join, baseGrain.PrimaryKey, joinGrain.PrimaryKey) {
			continue
		}
		return MultiGrainAnalysis{
			NeedsMultiGrain: true,
			Reason:          "filter on alias " + f.Alias + " reached via a join not proven one-to-one or many-to-one",
		}
	}

	return MultiGrainAnalysis{NeedsMultiGrain: false}
}

// TableGrains builds the alias->TableGrain map AnalyzeMultiGrain and
// the join planner need, from a flow's joins and the registry.
func TableGrains(r *Registry, flow *SemanticFlow) (map[string]TableGrain, error) {
	aliasToTable, err := r.AliasTable(flow)
	if err != nil {
		return nil, err
	}
	grains := make(map[string]TableGrain, len(aliasToTable))
	for alias, table := range aliasToTable {
		grains[alias] = TableGrain{Alias: alias, PrimaryKey: table.PrimaryKey}
	}
	return grains, nil
}

// flowJoinsByAlias returns a flow's joins keyed by alias — already the
// shape SemanticFlow.Joins stores them in; this just documents the
// lookups AnalyzeMultiGrain and the join planner both rely on.
func flowJoinsByAlias(flow *SemanticFlow) map[string]*FlowJoin {
	return flow.Joins
}

// grainColumnsForAlias computes the minimal column set spec.md §4.5
// calls a TableGrain: the alias's own primary key, plus every join-key
// column this alias must expose to join back into its neighbors (its
// own join's Right-side keys, and any child join's Left-side keys that
// live on this alias as the ToAlias).
func grainColumnsForAlias(flow *SemanticFlow, alias string, table *SemanticTable) []string {
	cols := map[string]bool{}
	for _, c := range table.PrimaryKey {
		cols[c] = true
	}
	if join, ok := flow.Joins[alias]; ok {
		for _, k := range join.JoinKeys {
			cols[k.Right] = true
		}
	}
	for _, join := range flow.Joins {
		if join.ToAlias == alias {
			for _, k := range join.JoinKeys {
				cols[k.Left] = true
			}
		}
	}
	out := make([]string, 0, len(cols))
	for c := range cols {
		out = append(out, c)
	}
	return out
}
