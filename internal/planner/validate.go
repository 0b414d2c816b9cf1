package planner

// ValidationMode controls whether ValidateRegistry returns all collected
// errors as an error (strict) or only as data, leaving the caller to log
// them and keep the registry (warn) (spec.md §4.3).
type ValidationMode string

const (
	ValidationStrict ValidationMode = "strict"
	ValidationWarn   ValidationMode = "warn"
)

// ValidateRegistry runs every check spec.md §4.3 lists against r. In
// strict mode a non-empty ValidationErrors is returned as error; in warn
// mode the caller receives the same ValidationErrors value but as data,
// not as the returned error — logging it (at slog.LevelWarn, per
// SPEC_FULL.md §10.1) and continuing is the caller's responsibility.
func ValidateRegistry(r *Registry, mode ValidationMode) (*ValidationErrors, error) {
	verrs := &ValidationErrors{}

	for _, table := range r.Tables() {
		validateTable(table, verrs)
	}
	for _, flow := range r.Flows() {
		validateFlow(r, flow, verrs)
	}

	if mode == ValidationStrict {
		return verrs, verrs.AsError()
	}
	return verrs, nil
}

func validateTable(table *SemanticTable, verrs *ValidationErrors) {
	cols := tableColumns(table)

	if len(table.PrimaryKey) == 0 {
		verrs.Add(newErr(SchemaMismatch, "table has no primary_key").withTable(table.Name))
	}
	for _, pk := range table.PrimaryKey {
		if !cols[pk] {
			verrs.Add(newErr(SchemaMismatch, "primary_key column %q not found", pk).withTable(table.Name))
		}
	}
	if table.TimeDimension != "" {
		if _, ok := table.Dimensions[table.TimeDimension]; !ok {
			verrs.Add(newErr(SchemaMismatch, "time_dimension %q not found among dimensions", table.TimeDimension).withTable(table.Name))
		}
	}

	for name, dim := range table.Dimensions {
		walkExprColumns(dim.Expr, cols, func(col string) {
			verrs.Add(newErr(SchemaMismatch, "dimension references unknown column %q", col).withTable(table.Name).withField(name))
		})
	}

	for name, meas := range table.Measures {
		validateMeasure(table, name, meas, cols, verrs)
	}
}

func validateMeasure(table *SemanticTable, name string, meas *Measure, cols map[string]bool, verrs *ValidationErrors) {
	kindsSet := 0
	if meas.IsBase() {
		kindsSet++
	}
	if meas.IsDerived() {
		kindsSet++
	}
	if meas.IsFormula() {
		kindsSet++
	}
	if kindsSet != 1 {
		verrs.Add(newErr(SchemaMismatch, "measure must set exactly one of {expr+agg, post_expr, formula}").withTable(table.Name).withField(name))
		return
	}

	if meas.IsBase() {
		walkExprColumns(meas.Expr, cols, func(col string) {
			verrs.Add(newErr(SchemaMismatch, "measure references unknown column %q", col).withTable(table.Name).withField(name))
		})
		if meas.Filter != nil {
			walkExprColumns(meas.Filter, cols, func(col string) {
				verrs.Add(newErr(SchemaMismatch, "measure filter references unknown column %q", col).withTable(table.Name).withField(name))
			})
		}
	}

	if meas.IsDerived() {
		refs := collectMeasureRefs(meas.PostExpr)
		for _, ref := range refs {
			dep, ok := table.Measures[ref]
			if !ok {
				verrs.Add(newErr(UnknownField, "post_expr references unknown measure %q", ref).withTable(table.Name).withField(name))
				continue
			}
			if dep.IsDerived() {
				verrs.Add(newErr(DerivedOfDerived, "post_expr of derived measure %q references another derived measure %q", name, ref).withTable(table.Name).withField(name))
			}
		}
	}
}

// tableColumns returns the set of physical column names a table's
// expressions may reference: this is a conservative superset (the core
// has no live SchemaProvider result here) built from declared
// primary-key and time-dimension columns plus every bare Column name
// already used by any dimension/measure expression. No code in this
// repository cross-checks the registry against a live SchemaProvider.
func tableColumns(table *SemanticTable) map[string]bool {
	cols := map[string]bool{}
	for _, pk := range table.PrimaryKey {
		cols[pk] = true
	}
	if table.TimeDimension != "" {
		cols[table.TimeDimension] = true
	}
	for _, dim := range table.Dimensions {
		collectColumnNames(dim.Expr, cols)
	}
	for _, meas := range table.Measures {
		if meas.Expr != nil {
			collectColumnNames(meas.Expr, cols)
		}
		if meas.Filter != nil {
			collectColumnNames(meas.Filter, cols)
		}
	}
	return cols
}

func collectColumnNames(e Expr, out map[string]bool) {
	switch n := e.(type) {
	case Column:
		out[n.Name] = true
	case Case:
		for _, b := range n.Branches {
			collectColumnNames(b.When, out)
			collectColumnNames(b.Then, out)
		}
		collectColumnNames(n.Else, out)
	case Binary:
		collectColumnNames(n.Left, out)
		collectColumnNames(n.Right, out)
	case Call:
		for _, a := range n.Args {
			collectColumnNames(a, out)
		}
	case AggregateExpr:
		collectColumnNames(n.Expr, out)
		if n.Filter != nil {
			collectColumnNames(n.Filter, out)
		}
	}
}

// walkExprColumns walks e (Case/Function/BinaryOp/Aggregate, per
// spec.md §4.3) and calls report for every unqualified Column name not
// present in cols. Qualified columns (Table != "") are left to the
// resolver/join-validation pass, since they reference a different
// table's schema.
func walkExprColumns(e Expr, cols map[string]bool, report func(string)) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case Column:
		if n.Table == "" && !cols[n.Name] {
			report(n.Name)
		}
	case Case:
		for _, b := range n.Branches {
			walkExprColumns(b.When, cols, report)
			walkExprColumns(b.Then, cols, report)
		}
		walkExprColumns(n.Else, cols, report)
	case Binary:
		walkExprColumns(n.Left, cols, report)
		walkExprColumns(n.Right, cols, report)
	case Call:
		for _, a := range n.Args {
			walkExprColumns(a, cols, report)
		}
	case AggregateExpr:
		walkExprColumns(n.Expr, cols, report)
		walkExprColumns(n.Filter, cols, report)
	}
}

// collectMeasureRefs walks e and returns every MeasureRef name found.
func collectMeasureRefs(e Expr) []string {
	var out []string
	var walk func(Expr)
	walk = func(e Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case MeasureRef:
			out = append(out, n.Name)
		case Case:
			for _, b := range n.Branches {
				walk(b.When)
				walk(b.Then)
			}
			walk(n.Else)
		case Binary:
			walk(n.Left)
			walk(n.Right)
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		case AggregateExpr:
			walk(n.Expr)
			walk(n.Filter)
		}
	}
	walk(e)
	return out
}

func validateFlow(r *Registry, flow *SemanticFlow, verrs *ValidationErrors) {
	aliases := map[string]bool{flow.BaseTable.Alias: true}
	for _, alias := range flow.JoinOrder {
		if aliases[alias] {
			verrs.Add(newErr(SchemaMismatch, "duplicate join alias %q", alias).withFlow(flow.Name))
			continue
		}
		aliases[alias] = true
	}

	baseTable, ok := r.Table(flow.BaseTable.SemanticTable)
	if !ok {
		verrs.Add(newErr(UnknownFlow, "base table %q not found", flow.BaseTable.SemanticTable).withFlow(flow.Name))
		return
	}

	dataSources := map[string]bool{baseTable.DataSource: true}
	aliasToTable := map[string]*SemanticTable{flow.BaseTable.Alias: baseTable}

	for _, alias := range flow.JoinOrder {
		join := flow.Joins[alias]
		table, ok := r.Table(join.SemanticTable)
		if !ok {
			verrs.Add(newErr(UnknownFlow, "joined table %q not found", join.SemanticTable).withFlow(flow.Name).withField(alias))
			continue
		}
		aliasToTable[alias] = table
		dataSources[table.DataSource] = true

		if join.ToAlias != flow.BaseTable.Alias {
			if _, seen := aliasToTable[join.ToAlias]; !seen {
				// to_alias must be *previously defined*: check definition order.
				verrs.Add(newErr(UnknownJoinAlias, "join %q references undefined to_alias %q", alias, join.ToAlias).withFlow(flow.Name))
				continue
			}
		}

		rightCols := tableColumns(table)
		toTable := aliasToTable[join.ToAlias]
		leftCols := tableColumns(toTable)
		for _, key := range join.JoinKeys {
			if !leftCols[key.Left] {
				verrs.Add(newErr(JoinKeyUnknownColumn, "join key left column %q not found on alias %q", key.Left, join.ToAlias).withFlow(flow.Name).withField(alias))
			}
			if !rightCols[key.Right] {
				verrs.Add(newErr(JoinKeyUnknownColumn, "join key right column %q not found on alias %q", key.Right, alias).withFlow(flow.Name).withField(alias))
			}
		}
	}

	if len(dataSources) > 1 {
		verrs.Add(newErr(MixedDataSources, "flow references %d distinct data sources", len(dataSources)).withFlow(flow.Name))
	}
}
