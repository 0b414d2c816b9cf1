package planner

import "strings"

// FilterOp is the whitelist of filter operators spec.md §4.3/§5 allows.
type FilterOp string

const (
	FilterEq       FilterOp = "=="
	FilterNeq      FilterOp = "!="
	FilterGt       FilterOp = ">"
	FilterGte      FilterOp = ">="
	FilterLt       FilterOp = "<"
	FilterLte      FilterOp = "<="
	FilterIn       FilterOp = "in"
	FilterNotIn    FilterOp = "not in"
	FilterLike     FilterOp = "like"
	FilterILike    FilterOp = "ilike"
)

var validFilterOps = map[FilterOp]bool{
	FilterEq: true, FilterNeq: true, FilterGt: true, FilterGte: true,
	FilterLt: true, FilterLte: true, FilterIn: true, FilterNotIn: true,
	FilterLike: true, FilterILike: true,
}

// Filter is one request-level predicate on a dimension's public name.
type Filter struct {
	Field string
	Op    FilterOp
	Value Value // scalar, or []Value for "in"/"not in"
}

// RequestOrderItem is one request-level ORDER BY term.
type RequestOrderItem struct {
	Column    string
	Direction string // "asc" or "desc"
}

// QueryRequest is the declarative request spec.md §4.4/§8 accepts.
type QueryRequest struct {
	Flow       string
	Dimensions []string
	Measures   []string
	Filters    []Filter
	Order      []RequestOrderItem
	Limit      *int
	Offset     *int
	PageSize   *int
	Cursor     string

	// RequestID correlates this request across slog attributes and the
	// HTTP response header; the planner itself never reads it.
	RequestID string
}

// ResolvedDimension is a dimension resolved to its owning alias and
// qualified SqlExpr.
type ResolvedDimension struct {
	Name  string // as requested (may be bare or qualified)
	Alias string
	Dim   *Dimension
	Expr  SqlExpr
}

// ResolvedMeasure is a measure resolved to its owning alias, classified
// by MeasureStrategy (strategy.go) for multi-grain re-aggregation, with
// Requested=false marking a dependency auto-included to satisfy a
// derived measure's post_expr (spec.md §4.4).
type ResolvedMeasure struct {
	Name      string
	Alias     string
	Measure   *Measure
	Strategy  MeasureStrategy
	Requested bool
}

// ResolvedFilter is a request filter resolved to its owning alias and
// qualified SqlExpr.
type ResolvedFilter struct {
	Filter Filter
	Alias  string
	Expr   SqlExpr
}

// ResolvedOrderItem is a request order term resolved to its SqlExpr.
type ResolvedOrderItem struct {
	Expr SqlExpr
	Desc bool
}

// QueryComponents is the fully resolved request (spec.md §3's
// QueryComponents type): every selected dimension/measure, filter, and
// order term bound to its owning alias, plus the alias→table map and
// the set of aliases any selected field, filter, or order term touches.
type QueryComponents struct {
	Flow            *SemanticFlow
	BaseAlias       string
	AliasToTable    map[string]*SemanticTable
	Dimensions      []ResolvedDimension
	Measures        []ResolvedMeasure
	Filters         []ResolvedFilter
	Order           []ResolvedOrderItem
	Limit           *int
	Offset          *int
	RequiredAliases map[string]bool
}

// ResolveComponents resolves req against flow using r, following
// spec.md §4.4's algorithm: qualified names resolve directly; bare
// names scan base-then-join-order and fail AmbiguousField on a
// collision; filters must target a dimension (InvalidFilterTarget on a
// measure); derived measures auto-include their depth-1 base
// dependencies.
func ResolveComponents(r *Registry, flow *SemanticFlow, req *QueryRequest) (*QueryComponents, error) {
	aliasToTable, err := r.AliasTable(flow)
	if err != nil {
		return nil, err
	}
	aliasOrder := append([]string{flow.BaseTable.Alias}, flow.JoinOrder...)

	qc := &QueryComponents{
		Flow:            flow,
		BaseAlias:       flow.BaseTable.Alias,
		AliasToTable:    aliasToTable,
		Limit:           req.Limit,
		Offset:          req.Offset,
		RequiredAliases: map[string]bool{},
	}

	for _, name := range req.Dimensions {
		alias, dim, err := resolveDimension(name, flow.Name, aliasOrder, aliasToTable)
		if err != nil {
			return nil, err
		}
		qc.Dimensions = append(qc.Dimensions, ResolvedDimension{
			Name: name, Alias: alias, Dim: dim, Expr: exprToSql(dim.Expr, alias),
		})
		qc.RequiredAliases[alias] = true
	}

	requestedNames := map[string]bool{}
	for _, name := range req.Measures {
		requestedNames[bareName(name)] = true
	}
	for _, name := range req.Measures {
		alias, meas, err := resolveMeasure(name, flow.Name, aliasOrder, aliasToTable)
		if err != nil {
			return nil, err
		}
		qc.Measures = append(qc.Measures, ResolvedMeasure{
			Name: name, Alias: alias, Measure: meas, Strategy: ClassifyMeasure(meas), Requested: true,
		})
		qc.RequiredAliases[alias] = true
	}

	// Auto-include depth-1 base dependencies of any requested derived
	// measure. Dependencies live on the same table (and therefore the
	// same alias) as the derived measure that references them
	// (spec.md §3 invariant: post_expr only references measures on the
	// same table).
	type depRef struct{ alias, name string }
	var deps []depRef
	seenDep := map[string]bool{}
	for _, rm := range qc.Measures {
		if !rm.Measure.IsDerived() {
			continue
		}
		for _, ref := range collectMeasureRefs(rm.Measure.PostExpr) {
			if requestedNames[ref] || seenDep[ref] {
				continue
			}
			seenDep[ref] = true
			deps = append(deps, depRef{alias: rm.Alias, name: ref})
		}
	}
	for _, dep := range deps {
		table := aliasToTable[dep.alias]
		meas, ok := table.Measures[dep.name]
		if !ok {
			return nil, newErr(UnknownField, "post_expr dependency %q not found", dep.name).withFlow(flow.Name)
		}
		qc.Measures = append(qc.Measures, ResolvedMeasure{
			Name: dep.name, Alias: dep.alias, Measure: meas, Strategy: ClassifyMeasure(meas), Requested: false,
		})
	}

	for _, f := range req.Filters {
		if !validFilterOps[f.Op] {
			return nil, newErr(InvalidOperator, "filter operator %q not in whitelist", f.Op).withFlow(flow.Name).withField(f.Field)
		}
		if (f.Op == FilterIn || f.Op == FilterNotIn) != isListValue(f.Value) {
			return nil, newErr(InvalidOperator, "operator %q requires a list value", f.Op).withFlow(flow.Name).withField(f.Field)
		}
		alias, dim, err := resolveFilterTarget(f.Field, flow, aliasOrder, aliasToTable)
		if err != nil {
			return nil, err
		}
		qc.Filters = append(qc.Filters, ResolvedFilter{Filter: f, Alias: alias, Expr: exprToSql(dim.Expr, alias)})
		qc.RequiredAliases[alias] = true
	}

	for _, o := range req.Order {
		alias, expr, err := resolveOrderTarget(o.Column, qc)
		if err != nil {
			return nil, err
		}
		qc.Order = append(qc.Order, ResolvedOrderItem{Expr: expr, Desc: strings.EqualFold(o.Direction, "desc")})
		qc.RequiredAliases[alias] = true
	}

	return qc, nil
}

func bareName(name string) string {
	if alias, field, ok := splitQualified(name); ok {
		_ = alias
		return field
	}
	return name
}

func splitQualified(name string) (alias, field string, ok bool) {
	i := strings.IndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

func isListValue(v Value) bool {
	_, ok := v.([]Value)
	if ok {
		return true
	}
	_, ok = v.([]any)
	return ok
}

// resolveDimension implements spec.md §4.4's lookup algorithm for
// dimensions: qualified names resolve directly on the named alias; bare
// names scan aliasOrder (base first, then joins in definition order)
// and fail AmbiguousField on more than one match.
func resolveDimension(name, flowName string, aliasOrder []string, aliasToTable map[string]*SemanticTable) (string, *Dimension, error) {
	if alias, field, ok := splitQualified(name); ok {
		table, ok := aliasToTable[alias]
		if !ok {
			return "", nil, newErr(UnknownJoinAlias, "alias %q not found", alias).withFlow(flowName).withField(name)
		}
		dim, ok := table.Dimensions[field]
		if !ok {
			return "", nil, newErr(UnknownField, "dimension %q not found on alias %q", field, alias).withFlow(flowName).withField(name)
		}
		return alias, dim, nil
	}

	var foundAlias string
	var foundDim *Dimension
	var matchedAliases []string
	for _, alias := range aliasOrder {
		table := aliasToTable[alias]
		if dim, ok := table.Dimensions[name]; ok {
			foundAlias, foundDim = alias, dim
			matchedAliases = append(matchedAliases, alias)
		}
	}
	if len(matchedAliases) > 1 {
		return "", nil, newErr(AmbiguousField, "dimension %q found on aliases %v", name, matchedAliases).withFlow(flowName).withField(name)
	}
	if foundDim == nil {
		return "", nil, newErr(UnknownField, "dimension %q not found on any alias", name).withFlow(flowName).withField(name)
	}
	return foundAlias, foundDim, nil
}

// resolveMeasure mirrors resolveDimension for measures.
func resolveMeasure(name, flowName string, aliasOrder []string, aliasToTable map[string]*SemanticTable) (string, *Measure, error) {
	if alias, field, ok := splitQualified(name); ok {
		table, ok := aliasToTable[alias]
		if !ok {
			return "", nil, newErr(UnknownJoinAlias, "alias %q not found", alias).withFlow(flowName).withField(name)
		}
		meas, ok := table.Measures[field]
		if !ok {
			return "", nil, newErr(UnknownField, "measure %q not found on alias %q", field, alias).withFlow(flowName).withField(name)
		}
		return alias, meas, nil
	}

	var foundAlias string
	var foundMeas *Measure
	var matchedAliases []string
	for _, alias := range aliasOrder {
		table := aliasToTable[alias]
		if meas, ok := table.Measures[name]; ok {
			foundAlias, foundMeas = alias, meas
			matchedAliases = append(matchedAliases, alias)
		}
	}
	if len(matchedAliases) > 1 {
		return "", nil, newErr(AmbiguousField, "measure %q found on aliases %v", name, matchedAliases).withFlow(flowName).withField(name)
	}
	if foundMeas == nil {
		return "", nil, newErr(UnknownField, "measure %q not found on any alias", name).withFlow(flowName).withField(name)
	}
	return foundAlias, foundMeas, nil
}

// resolveFilterTarget resolves a filter's field, rejecting a measure
// target with InvalidFilterTarget (spec.md §4.4, Non-goals: "measure-level
// filtering done in the request ... only dimension filters are accepted").
func resolveFilterTarget(name string, flow *SemanticFlow, aliasOrder []string, aliasToTable map[string]*SemanticTable) (string, *Dimension, error) {
	alias, dim, err := resolveDimension(name, flow.Name, aliasOrder, aliasToTable)
	if err == nil {
		return alias, dim, nil
	}
	if _, _, merr := resolveMeasure(name, flow.Name, aliasOrder, aliasToTable); merr == nil {
		return "", nil, newErr(InvalidFilterTarget, "filter field %q resolves to a measure, not a dimension", name).withFlow(flow.Name).withField(name)
	}
	return "", nil, err
}

// resolveOrderTarget requires the order column to be among already
// selected dimensions/measures by public name (spec.md §4.4).
func resolveOrderTarget(column string, qc *QueryComponents) (string, SqlExpr, error) {
	for _, d := range qc.Dimensions {
		if d.Name == column || qualifiedName(d.Alias, d.Name) == column {
			return d.Alias, d.Expr, nil
		}
	}
	for _, m := range qc.Measures {
		if m.Name == column || qualifiedName(m.Alias, m.Name) == column {
			return m.Alias, SqlColumn{Alias: m.Alias, Name: m.Name}, nil
		}
	}
	return "", nil, newErr(UnknownField, "order column %q does not refer to a selected field", column).withFlow(qc.Flow.Name)
}

func qualifiedName(alias, name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return alias + "." + name
}
