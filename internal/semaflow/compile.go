// Package semaflow ties the registry, planner, dialect, and sqlrender
// packages together into the single Compile entry point spec.md §3
// describes as "request in, SQL string out" — the orchestration step
// neither internal/planner nor internal/sqlrender can host themselves,
// since internal/planner/dialect already imports internal/planner and
// internal/sqlrender imports both.
package semaflow

import (
	"github.com/semaflow/semaflow/internal/planner"
	"github.com/semaflow/semaflow/internal/planner/dialect"
	"github.com/semaflow/semaflow/internal/sqlrender"
)

// CompileResult is everything a caller needs after planning a request:
// the rendered SQL, whether it required a MultiGrain plan, and the
// sanitized→public column alias map for presenting results.
type CompileResult struct {
	SQL             string
	NeedsMultiGrain bool
	Reason          string
	ColumnAliases   map[string]string // sanitized alias (alias__field) -> public name (alias.field)
}

// Compile resolves req against flow in r, decides Flat vs MultiGrain,
// builds the plan, and renders it against d — the full C6 through C10
// pipeline spec.md §4.4-§4.9 describes in sequence.
func Compile(r *planner.Registry, req *planner.QueryRequest, d dialect.Dialect) (*CompileResult, error) {
	flow, ok := r.Flow(req.Flow)
	if !ok {
		return nil, &planner.Error{ErrKind: planner.UnknownFlow, Flow: req.Flow, Message: "unknown flow \"" + req.Flow + "\""}
	}

	qc, err := planner.ResolveComponents(r, flow, req)
	if err != nil {
		return nil, err
	}

	grains, err := planner.TableGrains(r, flow)
	if err != nil {
		return nil, err
	}
	mg := planner.AnalyzeMultiGrain(qc, flow.Joins, grains)

	q, err := planner.BuildPlan(qc, mg, flow)
	if err != nil {
		return nil, err
	}

	renderer := sqlrender.New(d)
	sql := renderer.RenderSelect(q)

	aliases := map[string]string{}
	for _, dim := range qc.Dimensions {
		aliases[planner.SanitizedAlias(dim.Alias, dim.Dim.Name)] = dim.Alias + "." + dim.Dim.Name
	}
	for _, m := range qc.Measures {
		if m.Requested {
			aliases[planner.SanitizedAlias(m.Alias, m.Measure.Name)] = m.Alias + "." + m.Measure.Name
		}
	}

	return &CompileResult{
		SQL:             sql,
		NeedsMultiGrain: mg.NeedsMultiGrain,
		Reason:          mg.Reason,
		ColumnAliases:   aliases,
	}, nil
}
